package product

import (
	"context"

	"sigfarma/internal/core/id"
)

// Repository defines product persistence. It never writes the stock column.
type Repository interface {
	// Create inserts a new product with zero stock.
	Create(ctx context.Context, p *Product) error

	// GetByID retrieves a product, NotFound if absent.
	GetByID(ctx context.Context, id id.ID) (*Product, error)

	// GetByCode retrieves a product by its code.
	GetByCode(ctx context.Context, code string) (*Product, error)

	// ListLowStock retrieves active products whose stock is at or below the minimum.
	ListLowStock(ctx context.Context, limit int) ([]*Product, error)
}
