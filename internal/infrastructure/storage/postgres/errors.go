package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"sigfarma/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes the store reacts to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgNumericOutOfRange    = "22003"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
)

// errAcquire marks a failure to obtain a pooled connection.
type errAcquire struct{ err error }

func (e errAcquire) Error() string { return e.err.Error() }
func (e errAcquire) Unwrap() error { return e.err }

// classify maps storage failures to application errors. Errors that already
// carry an application code pass through unchanged.
func classify(err error) error {
	if err == nil || apperror.IsAppError(err) {
		return err
	}

	var acq errAcquire
	if errors.As(err, &acq) {
		return apperror.NewTransient(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgSerializationFailure,
			pgErr.Code == pgDeadlockDetected,
			pgErr.Code == pgLockNotAvailable,
			pgErr.Code == pgQueryCanceled,
			pgErr.Code == pgAdminShutdown,
			pgErr.Code == pgCannotConnectNow,
			strings.HasPrefix(pgErr.Code, "08"):
			return apperror.NewTransient(err)
		case pgErr.Code == pgUniqueViolation:
			return apperror.NewValidation("duplicate value").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgErr.Code == pgForeignKeyViolation:
			return apperror.NewValidation("referenced entity does not exist").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgErr.Code == pgNumericOutOfRange:
			return apperror.NewValidation("quantity out of range").WithCause(err)
		case pgErr.Code == pgCheckViolation && pgErr.ConstraintName == "batches_available_qty_check":
			return apperror.NewNegativeStockInvariant("", "", "").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
		return apperror.NewInternal(err)
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewTransient(err)
	}
	return err
}
