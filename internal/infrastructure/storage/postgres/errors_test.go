package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigfarma/internal/core/apperror"
)

func pgError(code, constraint string) error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, ConstraintName: constraint, Message: "pg says no"})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"serialization failure", pgError("40001", ""), apperror.CodeTransient},
		{"deadlock", pgError("40P01", ""), apperror.CodeTransient},
		{"connection failure", pgError("08006", ""), apperror.CodeTransient},
		{"connection does not exist", pgError("08003", ""), apperror.CodeTransient},
		{"lock not available", pgError("55P03", ""), apperror.CodeTransient},
		{"negative batch", pgError("23514", "batches_available_qty_check"), apperror.CodeNegativeStockInvariant},
		{"other check", pgError("23514", "doc_sale_lines_returned_check"), apperror.CodeInternal},
		{"unique", pgError("23505", "doc_sales_number_key"), apperror.CodeValidation},
		{"foreign key", pgError("23503", "batches_product_id_fkey"), apperror.CodeValidation},
		{"bigint overflow", pgError("22003", ""), apperror.CodeValidation},
		{"syntax", pgError("42601", ""), apperror.CodeInternal},
		{"pool exhausted", fmt.Errorf("acquire connection: %w", errAcquire{context.DeadlineExceeded}), apperror.CodeTransient},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), apperror.CodeTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr, ok := apperror.AsAppError(classify(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.code, appErr.Code)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestClassifyRetryable(t *testing.T) {
	assert.True(t, apperror.IsRetryable(classify(pgError("40P01", ""))))
	assert.False(t, apperror.IsRetryable(classify(pgError("23505", "doc_sales_number_key"))))
}

func TestClassifyKeepsAppErrors(t *testing.T) {
	assert.NoError(t, classify(nil))

	typed := apperror.NewOverReturn("line-1", "3.000", "2.000")
	wrapped := fmt.Errorf("create return: %w", typed)
	assert.Same(t, wrapped, classify(wrapped))

	plain := errors.New("scan failed")
	assert.Same(t, plain, classify(plain))
}

func TestClassifyConstraintDetail(t *testing.T) {
	appErr, ok := apperror.AsAppError(classify(pgError("23505", "doc_sales_number_key")))
	require.True(t, ok)
	assert.Equal(t, "doc_sales_number_key", appErr.Details["constraint"])
}
