package postgres

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdempotencyKey_Replay(t *testing.T) {
	k := &idempotencyKey{Status: keyDone, Response: []byte(`{"number":"SL-000001"}`)}

	r := k.replay()
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, "application/json", r.ContentType)
	assert.JSONEq(t, `{"number":"SL-000001"}`, string(r.Body))

	k.StatusCode = http.StatusCreated
	assert.Equal(t, http.StatusCreated, k.replay().StatusCode)
}

func TestIdempotencyKey_Matches(t *testing.T) {
	k := &idempotencyKey{UserID: "cashier-7", Operation: "POST /api/v1/sales", RequestHash: "abc"}

	assert.True(t, k.matches("cashier-7", "POST /api/v1/sales", "abc"))
	assert.False(t, k.matches("cashier-8", "POST /api/v1/sales", "abc"))
	assert.False(t, k.matches("cashier-7", "POST /api/v1/returns", "abc"))
	assert.False(t, k.matches("cashier-7", "POST /api/v1/sales", "abd"))
}

func TestNewIdempotencyStore_Defaults(t *testing.T) {
	s := NewIdempotencyStore(nil, 0)
	assert.Equal(t, defaultIdempotencyTTL, s.ttl)
	assert.Equal(t, defaultPendingTimeout, s.pendingTimeout)

	s.WithPendingTimeout(-time.Second)
	assert.Equal(t, defaultPendingTimeout, s.pendingTimeout)
	s.WithPendingTimeout(10 * time.Second)
	assert.Equal(t, 10*time.Second, s.pendingTimeout)
	assert.Equal(t, time.UTC, s.now().Location())
}
