// Package apperror defines the error type shared by the ledger core and its
// transports. Every business failure is an AppError with a stable code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidState = "INVALID_STATE"
	CodeIdempotency  = "IDEMPOTENCY_CONFLICT"

	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeOverReturn        = "OVER_RETURN"

	// CodeNegativeStockInvariant means a batch would have gone below zero
	// after validation and locking. It is a bug, never a user error.
	CodeNegativeStockInvariant = "NEGATIVE_STOCK_INVARIANT"
	CodeTransient              = "TRANSIENT_ERROR"
	CodeInternal               = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeValidation:             http.StatusBadRequest,
	CodeUnauthorized:           http.StatusUnauthorized,
	CodeNotFound:               http.StatusNotFound,
	CodeInvalidState:           http.StatusConflict,
	CodeIdempotency:            http.StatusConflict,
	CodeInsufficientStock:      http.StatusUnprocessableEntity,
	CodeOverReturn:             http.StatusUnprocessableEntity,
	CodeNegativeStockInvariant: http.StatusInternalServerError,
	CodeTransient:              http.StatusServiceUnavailable,
	CodeInternal:               http.StatusInternalServerError,
}

// AppError is rendered to clients as {code, message, details}. Err stays server side.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func newError(code, message string, details map[string]any) *AppError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail sets one detail and returns e for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

func NewValidation(message string) *AppError {
	return newError(CodeValidation, message, nil)
}

func NewUnauthorized(message string) *AppError {
	return newError(CodeUnauthorized, message, nil)
}

func NewNotFound(entity string, id any) *AppError {
	return newError(CodeNotFound, entity+" not found",
		map[string]any{"entity": entity, "id": id})
}

// NewInvalidState rejects an operation on a document or batch in the wrong
// lifecycle state, such as approving an approved receiving record.
func NewInvalidState(entity string, id any, state string) *AppError {
	return newError(CodeInvalidState, fmt.Sprintf("%s is in state %q", entity, state),
		map[string]any{"entity": entity, "id": id, "state": state})
}

// NewInsufficientStock reports a line asking for more than its batch holds.
func NewInsufficientStock(batchID, requested, available string) *AppError {
	return newError(CodeInsufficientStock, "insufficient stock",
		map[string]any{"batch_id": batchID, "requested": requested, "available": available})
}

// NewOverReturn reports a return line above what is still returnable on its sale line.
func NewOverReturn(saleLineID, requested, remaining string) *AppError {
	return newError(CodeOverReturn, "returned quantity exceeds the returnable remainder",
		map[string]any{"sale_line_id": saleLineID, "requested": requested, "remaining": remaining})
}

func NewNegativeStockInvariant(batchID, current, delta string) *AppError {
	return newError(CodeNegativeStockInvariant, "batch quantity would become negative",
		map[string]any{"batch_id": batchID, "current": current, "delta": delta})
}

// NewTransient wraps a storage failure the caller may retry with the same input.
func NewTransient(err error) *AppError {
	return newError(CodeTransient, "temporary storage failure, retry the operation", nil).WithCause(err)
}

// NewInternal hides err behind a generic message.
func NewInternal(err error) *AppError {
	return newError(CodeInternal, "internal server error", nil).WithCause(err)
}

// NewIdempotencyConflict: the key is held by a request still in flight.
func NewIdempotencyConflict(key string) *AppError {
	return newError(CodeIdempotency, "request with this idempotency key is in progress",
		map[string]any{"idempotency_key": key})
}

// NewIdempotencyMismatch: the key was already used by another caller, route or body.
func NewIdempotencyMismatch(key string) *AppError {
	return newError(CodeIdempotency, "idempotency key was used for a different request",
		map[string]any{"idempotency_key": key})
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// GetHTTPStatus is 500 for anything that is not an AppError.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// IsRetryable is true only for transient storage failures.
// Business errors need different input, not another attempt.
func IsRetryable(err error) bool { return HasCode(err, CodeTransient) }

// IsFatal reports a broken stock invariant.
func IsFatal(err error) bool { return HasCode(err, CodeNegativeStockInvariant) }
