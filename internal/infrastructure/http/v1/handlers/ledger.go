package handlers

import (
	"github.com/gin-gonic/gin"

	"sigfarma/internal/domain/ledger"
	"sigfarma/internal/infrastructure/http/v1/dto"
)

// LedgerHandler exposes read access to batches and ledger verification.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// ListBatches lists batches with their expiry classification.
// GET /batches?expiry=critical|warning|normal
func (h *LedgerHandler) ListBatches(c *gin.Context) {
	var q dto.BatchListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, bucket, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	result, err := h.service.ListBatches(c.Request.Context(), filter, bucket)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// GetBatch returns one batch.
// GET /batches/:id
func (h *LedgerHandler) GetBatch(c *gin.Context) {
	batchID, ok := h.PathID(c)
	if !ok {
		return
	}
	view, err := h.service.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, view)
}

// Verify checks that the product's stock matches its active batches.
// GET /products/:id/ledger
func (h *LedgerHandler) Verify(c *gin.Context) {
	productID, ok := h.PathID(c)
	if !ok {
		return
	}
	report, err := h.service.Verify(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
