package adjustment

import (
	"context"

	"sigfarma/internal/core/id"
	"sigfarma/internal/domain"
)

// Repository defines persistence for adjustments.
type Repository interface {
	Create(ctx context.Context, doc *Adjustment) error
	SaveLines(ctx context.Context, adjustmentID id.ID, lines []Line) error
	GetByID(ctx context.Context, id id.ID) (*Adjustment, error)
	GetLines(ctx context.Context, adjustmentID id.ID) ([]Line, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Adjustment], error)
}
