package sale

import (
	"context"

	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain"
)

// Repository defines persistence for sales.
type Repository interface {
	// Create inserts the sale header.
	Create(ctx context.Context, doc *Sale) error

	// SaveLines inserts the sale lines.
	SaveLines(ctx context.Context, saleID id.ID, lines []Line) error

	// GetByID retrieves the header only.
	GetByID(ctx context.Context, id id.ID) (*Sale, error)

	// GetLines retrieves lines ordered by line number.
	GetLines(ctx context.Context, saleID id.ID) ([]Line, error)

	// LockLines retrieves all lines of a sale with a row lock, ordered by line number.
	LockLines(ctx context.Context, saleID id.ID) ([]Line, error)

	// AddReturnedQty adds qty to the returned quantity of a line.
	AddReturnedQty(ctx context.Context, lineID id.ID, qty types.Quantity) error

	// List retrieves headers with filtering and pagination.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

// ListFilter filters the sale list.
type ListFilter struct {
	domain.ListFilter
	PaymentMethod *PaymentMethod
}
