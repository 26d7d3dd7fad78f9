package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "sigfarma/internal/core/context"
	"sigfarma/internal/core/id"
)

type doc struct {
	ID     id.ID  `json:"id"`
	Number string `json:"number"`
}

func (d doc) GetID() id.ID { return d.ID }

type recorded struct{ entries []Entry }

func (r *recorded) Record(_ context.Context, e Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func TestNewEntry_Caller(t *testing.T) {
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "cashier-7"})
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{RequestID: "req-42"})

	e, err := NewEntry(ctx, "sale", id.New(), ActionCreate, map[string]string{"number": "SL-000001"})
	require.NoError(t, err)
	assert.Equal(t, "cashier-7", e.UserID)
	assert.Equal(t, "req-42", e.RequestID)
	assert.JSONEq(t, `{"number":"SL-000001"}`, string(e.Snapshot))
}

func TestNewEntry_Background(t *testing.T) {
	e, err := NewEntry(context.Background(), "receiving", id.New(), ActionApprove, nil)
	require.NoError(t, err)
	assert.Equal(t, "system", e.UserID)
	assert.Empty(t, e.RequestID)
}

func TestHook(t *testing.T) {
	rec := &recorded{}
	d := doc{ID: id.New(), Number: "RC-000003"}

	require.NoError(t, Hook[doc](rec, "receiving", ActionApprove)(context.Background(), d))
	require.Len(t, rec.entries, 1)
	assert.Equal(t, d.ID, rec.entries[0].EntityID)
	assert.Equal(t, ActionApprove, rec.entries[0].Action)
	assert.Equal(t, "receiving", rec.entries[0].EntityType)
}
