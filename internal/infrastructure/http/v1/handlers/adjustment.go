package handlers

import (
	"github.com/gin-gonic/gin"

	"sigfarma/internal/domain/documents/adjustment"
	"sigfarma/internal/infrastructure/http/v1/dto"
)

// AdjustmentHandler handles physical count corrections.
type AdjustmentHandler struct {
	*BaseHandler
	service *adjustment.Service
}

// NewAdjustmentHandler creates an adjustment handler.
func NewAdjustmentHandler(base *BaseHandler, service *adjustment.Service) *AdjustmentHandler {
	return &AdjustmentHandler{BaseHandler: base, service: service}
}

// Create sets counted batch quantities.
// POST /adjustments
func (h *AdjustmentHandler) Create(c *gin.Context) {
	var req dto.CreateAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// Get returns an adjustment with its lines.
// GET /adjustments/:id
func (h *AdjustmentHandler) Get(c *gin.Context) {
	adjustmentID, ok := h.PathID(c)
	if !ok {
		return
	}
	doc, err := h.service.GetByID(c.Request.Context(), adjustmentID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// List returns adjustment headers.
// GET /adjustments
func (h *AdjustmentHandler) List(c *gin.Context) {
	var q dto.ListQuery
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
