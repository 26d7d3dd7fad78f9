package receiving

import (
	"context"

	"sigfarma/internal/core/id"
	"sigfarma/internal/domain"
)

// Repository defines persistence for receiving records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	SaveLines(ctx context.Context, recordID id.ID, lines []Line) error
	GetByID(ctx context.Context, id id.ID) (*Record, error)

	// GetForUpdate retrieves the header with a row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Record, error)

	GetLines(ctx context.Context, recordID id.ID) ([]Line, error)

	// UpdateStatus persists status, approval and audit fields.
	UpdateStatus(ctx context.Context, rec *Record) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Record], error)
}

// ListFilter filters the record list.
type ListFilter struct {
	domain.ListFilter
	Status     *Status
	SupplierID *id.ID
}
