package dto

import (
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/documents/adjustment"
)

// CreateAdjustmentRequest is the body of POST /adjustments.
type CreateAdjustmentRequest struct {
	Reason string                  `json:"reason"`
	Notes  string                  `json:"notes,omitempty"`
	Lines  []AdjustmentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// AdjustmentLineRequest sets the counted quantity of a batch.
type AdjustmentLineRequest struct {
	BatchID  string         `json:"batchId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
}

// ToEntity builds the adjustment.
func (r *CreateAdjustmentRequest) ToEntity() (*adjustment.Adjustment, error) {
	doc := adjustment.NewAdjustment(r.Reason, r.Notes)
	for _, l := range r.Lines {
		batchID, err := ParseID("batchId", l.BatchID)
		if err != nil {
			return nil, err
		}
		doc.AddLine(batchID, l.Quantity)
	}
	return doc, nil
}
