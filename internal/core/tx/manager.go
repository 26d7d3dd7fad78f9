// Package tx provides transaction management abstractions.
// Domain services depend on Manager; the Postgres and in-memory stores implement it.
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
// If fn returns an error, every write made through ctx is rolled back.
// Nested calls reuse the transaction already bound to ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transactions.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
