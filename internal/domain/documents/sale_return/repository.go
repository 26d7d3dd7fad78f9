package sale_return

import (
	"context"

	"sigfarma/internal/core/id"
	"sigfarma/internal/domain"
)

// Repository defines persistence for returns.
type Repository interface {
	Create(ctx context.Context, doc *Return) error
	SaveLines(ctx context.Context, returnID id.ID, lines []Line) error
	GetByID(ctx context.Context, id id.ID) (*Return, error)
	GetLines(ctx context.Context, returnID id.ID) ([]Line, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Return], error)
}

// ListFilter filters the return list.
type ListFilter struct {
	domain.ListFilter
	SaleID *id.ID
}
