package handlers

import (
	"github.com/gin-gonic/gin"

	"sigfarma/internal/domain/documents/receiving"
	"sigfarma/internal/infrastructure/http/v1/dto"
)

// ReceivingHandler handles supplier deliveries.
type ReceivingHandler struct {
	*BaseHandler
	service *receiving.Service
}

// NewReceivingHandler creates a receiving handler.
func NewReceivingHandler(base *BaseHandler, service *receiving.Service) *ReceivingHandler {
	return &ReceivingHandler{BaseHandler: base, service: service}
}

// Create registers a draft with one inactive batch per line.
// POST /receivings
func (h *ReceivingHandler) Create(c *gin.Context) {
	var req dto.CreateReceivingRequest
	if !h.BindJSON(c, &req) {
		return
	}
	rec, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.CreateDraft(c.Request.Context(), rec); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, rec)
}

// Approve activates the record's batches and books their stock.
// POST /receivings/:id/approve
func (h *ReceivingHandler) Approve(c *gin.Context) {
	recordID, ok := h.PathID(c)
	if !ok {
		return
	}
	rec, err := h.service.Approve(c.Request.Context(), recordID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// Get returns a record with its lines.
// GET /receivings/:id
func (h *ReceivingHandler) Get(c *gin.Context) {
	recordID, ok := h.PathID(c)
	if !ok {
		return
	}
	rec, err := h.service.GetByID(c.Request.Context(), recordID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// List returns record headers.
// GET /receivings
func (h *ReceivingHandler) List(c *gin.Context) {
	var q dto.ReceivingListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
