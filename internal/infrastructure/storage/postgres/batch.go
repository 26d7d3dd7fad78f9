package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sigfarma/internal/core/id"
)

// BatchInserter bulk-inserts rows with the COPY protocol. Document lines are
// written through it so a large receiving is one round-trip.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice performs bulk insert from a slice of rows.
// Each row must match columns positionally.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := b.txManager.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("CopyFromSlice requires transaction context")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}

// CopyLines bulk-inserts document lines. The owning document id is written to
// parentColumn, followed by the line's db columns in declaration order.
func CopyLines[T any](ctx context.Context, b *BatchInserter, table, parentColumn string, parentID id.ID, lines []T) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	columns := append([]string{parentColumn}, ExtractDBColumns[T]()...)
	rows := make([][]any, 0, len(lines))
	for i := range lines {
		rows = append(rows, append([]any{parentID}, StructValues(&lines[i])...))
	}
	return b.CopyFromSlice(ctx, table, columns, rows)
}
