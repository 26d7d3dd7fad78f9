// Package supplier provides the Supplier catalog referenced by receiving records.
package supplier

import (
	"context"

	"sigfarma/internal/core/entity"
	"sigfarma/internal/core/id"
)

// Supplier delivers goods recorded by receiving records.
type Supplier struct {
	entity.Catalog

	// TaxID is the supplier's tax registration number (NIT)
	TaxID string `db:"tax_id" json:"taxId"`

	Phone *string `db:"phone" json:"phone,omitempty"`
	Email *string `db:"email" json:"email,omitempty"`
}

// NewSupplier creates an active supplier.
func NewSupplier(code, name, taxID string) *Supplier {
	return &Supplier{
		Catalog: entity.NewCatalog(code, name),
		TaxID:   taxID,
	}
}

// Repository defines supplier persistence.
type Repository interface {
	Create(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, id id.ID) (*Supplier, error)
}
