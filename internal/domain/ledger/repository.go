package ledger

import (
	"context"

	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
)

// Repository is the storage contract of the ledger. Only Service calls the
// mutating methods; they must run inside a transaction.
type Repository interface {
	// GetBatch reads a batch without locking it.
	GetBatch(ctx context.Context, batchID id.ID) (*Batch, error)

	// LockBatches reads and row-locks batches in the given order.
	// Missing ids are simply absent from the result.
	LockBatches(ctx context.Context, batchIDs []id.ID) ([]*Batch, error)

	// CreateBatch inserts a batch.
	CreateBatch(ctx context.Context, b *Batch) error

	// SetBatchActive flips the active flag.
	SetBatchActive(ctx context.Context, batchID id.ID, active bool) error

	// AddBatchQty adds delta to available_qty and returns the new value.
	AddBatchQty(ctx context.Context, batchID id.ID, delta types.Quantity) (types.Quantity, error)

	// AddProductStock adds delta to the product stock and returns the new value.
	AddProductStock(ctx context.Context, productID id.ID, delta types.Quantity) (types.Quantity, error)

	// UpsertAggregate sets the inventory row of a product.
	UpsertAggregate(ctx context.Context, productID id.ID, total types.Quantity) error

	// GetProductStock reads product stock and minimum stock.
	GetProductStock(ctx context.Context, productID id.ID) (stock, minStock types.Quantity, err error)

	// SumActiveBatches sums available_qty over the product's active batches.
	SumActiveBatches(ctx context.Context, productID id.ID) (types.Quantity, error)

	// GetAggregate reads the inventory row; a missing row reads as zero stock.
	GetAggregate(ctx context.Context, productID id.ID) (*Aggregate, error)

	// ListBatches lists batches ordered by expiration date, then id.
	ListBatches(ctx context.Context, filter BatchFilter) ([]*Batch, int64, error)
}
