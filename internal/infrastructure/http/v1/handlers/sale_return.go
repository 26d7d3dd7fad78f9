package handlers

import (
	"github.com/gin-gonic/gin"

	"sigfarma/internal/domain/documents/sale_return"
	"sigfarma/internal/infrastructure/http/v1/dto"
)

// ReturnHandler handles returns against sales.
type ReturnHandler struct {
	*BaseHandler
	service *sale_return.Service
}

// NewReturnHandler creates a return handler.
func NewReturnHandler(base *BaseHandler, service *sale_return.Service) *ReturnHandler {
	return &ReturnHandler{BaseHandler: base, service: service}
}

// Create records a return and credits the original batches.
// POST /returns
func (h *ReturnHandler) Create(c *gin.Context) {
	var req dto.CreateReturnRequest
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

// Get returns a return with its lines.
// GET /returns/:id
func (h *ReturnHandler) Get(c *gin.Context) {
	returnID, ok := h.PathID(c)
	if !ok {
		return
	}
	doc, err := h.service.GetByID(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// List returns return headers, optionally for one sale.
// GET /returns
func (h *ReturnHandler) List(c *gin.Context) {
	var q dto.ReturnListQuery
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
