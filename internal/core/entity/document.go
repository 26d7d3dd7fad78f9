package entity

import (
	"context"
	"time"

	"sigfarma/internal/core/apperror"
	appctx "sigfarma/internal/core/context"
	"sigfarma/internal/core/id"
)

// Document is the common header of sales, returns, adjustments and receiving records.
// Number is unique per document type and numbering period.
type Document struct {
	BaseEntity
	Stamp

	Number  string    `db:"number" json:"number"`
	Date    time.Time `db:"date" json:"date"`
	Comment string    `db:"comment" json:"comment,omitempty"`
}

// NewDocument returns an unnumbered document dated now (UTC).
func NewDocument() Document {
	now := time.Now().UTC()
	return Document{
		BaseEntity: newBaseEntity(),
		Stamp:      Stamp{CreatedAt: now, UpdatedAt: now},
		Date:       now,
	}
}

// Attribute sets the caller in ctx as creator, once, and as last updater.
func (d *Document) Attribute(ctx context.Context) {
	actor := appctx.ActorOrSystem(ctx)
	if d.CreatedBy == "" {
		d.CreatedBy = actor
	}
	d.UpdatedBy = actor
}

// Touch marks the document as changed.
func (d *Document) Touch() {
	d.UpdatedAt = time.Now().UTC()
	d.Version++
}

func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	return nil
}

func (d *Document) GetID() id.ID { return d.ID }
