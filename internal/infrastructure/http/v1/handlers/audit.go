package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/domain/audit"
)

const maxHistoryLimit = 200

// AuditHandler serves the audit trail of documents.
type AuditHandler struct {
	*BaseHandler
	reader audit.Reader
}

func NewAuditHandler(base *BaseHandler, reader audit.Reader) *AuditHandler {
	return &AuditHandler{BaseHandler: base, reader: reader}
}

// History returns audit entries of one document, newest first.
// GET /documents/:id/history?limit=50
func (h *AuditHandler) History(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxHistoryLimit {
			h.Error(c, apperror.NewValidation(fmt.Sprintf("limit must be between 0 and %d", maxHistoryLimit)).WithDetail("limit", raw))
			return
		}
		limit = n
	}
	entries, err := h.reader.History(c.Request.Context(), docID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}
