package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"sigfarma/internal/core/apperror"
	appctx "sigfarma/internal/core/context"
	"sigfarma/internal/infrastructure/storage/postgres"
)

const (
	HeaderIdempotencyKey       = "Idempotency-Key"
	legacyHeaderIdempotencyKey = "X-Idempotency-Key"

	maxIdempotencyBodyBytes = 1 << 20 // 1 MiB
)

// gin context keys shared with the handlers
const (
	CtxIdempotencyKey   = "idempotency_key"
	CtxIdempotencyStore = "idempotency_store"
)

// IdempotencyStore persists keys and the responses to replay for them.
// *postgres.IdempotencyStore implements it.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
}

// Idempotency replays the stored response when a POST repeats an Idempotency-Key.
// The same key with a different body is a conflict.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			key = c.GetHeader(legacyHeaderIdempotencyKey)
		}
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1))
		if err != nil {
			_ = c.Error(apperror.NewValidation("cannot read request body"))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)

		operation := c.Request.Method + " " + c.FullPath()
		replay, err := store.AcquireKey(c.Request.Context(), key, appctx.GetUserID(c.Request.Context()), operation, hex.EncodeToString(sum[:]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replay", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(CtxIdempotencyKey, key)
		c.Set(CtxIdempotencyStore, store)
		c.Next()
	}
}

// CompleteIdempotency stores the successful response for replay. No-op when
// the request carried no key.
func CompleteIdempotency(c *gin.Context, statusCode int, response any) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), key, statusCode, "application/json", response); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
	}
}

func failIdempotency(c *gin.Context, statusCode int, response any) {
	if key, store, ok := idempotencyFrom(c); ok {
		_ = store.FailKey(c.Request.Context(), key, statusCode, "application/json", response)
	}
}

func idempotencyFrom(c *gin.Context) (string, IdempotencyStore, bool) {
	key := c.GetString(CtxIdempotencyKey)
	if key == "" {
		return "", nil, false
	}
	v, ok := c.Get(CtxIdempotencyStore)
	if !ok {
		return "", nil, false
	}
	store, ok := v.(IdempotencyStore)
	return key, store, ok && store != nil
}
