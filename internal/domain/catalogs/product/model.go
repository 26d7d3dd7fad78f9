// Package product provides the Product catalog as seen by the stock ledger.
// Stock fields are owned by the ledger and are read-only here.
package product

import (
	"context"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/entity"
	"sigfarma/internal/core/types"
)

// Product is a sellable item tracked by batches.
type Product struct {
	entity.Catalog

	// Barcode is the item barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// SalePrice is the list price suggested at the point of sale
	SalePrice types.Money `db:"sale_price" json:"salePrice"`

	// MinStock triggers the low-stock alert when Stock falls to or below it
	MinStock types.Quantity `db:"min_stock" json:"minStock"`

	// Stock is the sum of available quantity over active batches. Ledger-owned.
	Stock types.Quantity `db:"stock" json:"stock"`
}

// NewProduct creates an active product with zero stock.
func NewProduct(code, name string, salePrice types.Money, minStock types.Quantity) *Product {
	return &Product{
		Catalog:   entity.NewCatalog(code, name),
		SalePrice: salePrice,
		MinStock:  minStock,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}
	if p.Code == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if p.SalePrice.IsNegative() {
		return apperror.NewValidation("sale price cannot be negative").WithDetail("field", "salePrice")
	}
	if p.MinStock.IsNegative() {
		return apperror.NewValidation("minimum stock cannot be negative").WithDetail("field", "minStock")
	}
	return nil
}

// IsLowStock reports whether stock has reached the minimum.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}
