package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_WrappedLookup(t *testing.T) {
	base := NewOverReturn("line-1", "3.000", "2.000")
	wrapped := fmt.Errorf("create return: %w", base)

	appErr, ok := AsAppError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeOverReturn, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(wrapped))
	assert.Equal(t, "2.000", appErr.Details["remaining"])
}

func TestIsRetryable(t *testing.T) {
	cause := errors.New("connection reset by peer")

	assert.True(t, IsRetryable(fmt.Errorf("tx: %w", NewTransient(cause))))
	assert.False(t, IsRetryable(NewInsufficientStock("b", "5", "1")))
	assert.False(t, IsRetryable(NewNegativeStockInvariant("b", "1", "-2")))
	assert.False(t, IsRetryable(cause))
}

func TestTransientUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewTransient(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewNegativeStockInvariant("b", "0", "-1")))
	assert.False(t, IsFatal(NewValidation("bad")))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
}

func TestInvalidStateDetails(t *testing.T) {
	err := NewInvalidState("receiving", "r-1", "approved")

	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
	assert.Equal(t, "approved", err.Details["state"])
	assert.Contains(t, err.Error(), CodeInvalidState)
}

func TestStatusByCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidation("bad"), http.StatusBadRequest},
		{NewUnauthorized("no token"), http.StatusUnauthorized},
		{NewNotFound("batch", "b-1"), http.StatusNotFound},
		{NewIdempotencyConflict("k"), http.StatusConflict},
		{NewIdempotencyMismatch("k"), http.StatusConflict},
		{NewInsufficientStock("b", "2", "1"), http.StatusUnprocessableEntity},
		{NewInternal(errors.New("x")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus)
		})
	}
	assert.Equal(t, "NOT_FOUND: batch not found", NewNotFound("batch", "b-1").Error())
}
