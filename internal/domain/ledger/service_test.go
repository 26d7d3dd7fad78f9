package ledger_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/domain/expiry"
	"sigfarma/internal/domain/ledger"
	"sigfarma/internal/infrastructure/storage/memory"
)

var today = time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

type env struct {
	ctx   context.Context
	store *memory.Store
	svc   *ledger.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	return &env{
		ctx:   context.Background(),
		store: store,
		svc:   ledger.NewService(store.Ledger(), store, ledger.WithClock(func() time.Time { return today })),
	}
}

func (e *env) product(t *testing.T, code string) id.ID {
	t.Helper()
	p := product.NewProduct(code, code, types.MustMoney("10"), types.NewQuantity(2))
	require.NoError(t, e.store.Products().Create(e.ctx, p))
	return p.ID
}

// batch registers, activates and fills a batch.
func (e *env) batch(t *testing.T, productID id.ID, qty int64, expires time.Time) id.ID {
	t.Helper()
	b, err := e.svc.RegisterBatch(e.ctx, ledger.NewBatch{
		ProductID:      productID,
		Code:           "L-" + expires.Format("0601"),
		ExpirationDate: expires,
		PurchasePrice:  types.MustMoney("4"),
	})
	require.NoError(t, err)
	require.NoError(t, e.svc.Activate(e.ctx, b.ID))
	if qty > 0 {
		_, err = e.svc.ApplyDelta(e.ctx, productID, b.ID, types.NewQuantity(qty))
		require.NoError(t, err)
	}
	return b.ID
}

func TestApplyDelta(t *testing.T) {
	e := newEnv(t)
	productID := e.product(t, "P1")
	batchID := e.batch(t, productID, 10, today.AddDate(1, 0, 0))

	res, err := e.svc.ApplyDelta(e.ctx, productID, batchID, types.NewQuantity(-4))
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(10), res.BatchBefore)
	assert.Equal(t, types.NewQuantity(6), res.BatchAfter)
	assert.Equal(t, types.NewQuantity(6), res.ProductStock)

	report, err := e.svc.Verify(e.ctx, productID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, types.NewQuantity(6), report.AggregateStock)
}

func TestApplyDeltaNeverGoesNegative(t *testing.T) {
	e := newEnv(t)
	productID := e.product(t, "P1")
	batchID := e.batch(t, productID, 3, today.AddDate(1, 0, 0))

	_, err := e.svc.ApplyDelta(e.ctx, productID, batchID, types.NewQuantity(-4))
	require.Error(t, err)
	assert.True(t, apperror.IsFatal(err))
	assert.False(t, apperror.IsRetryable(err))

	b, err := e.svc.GetBatch(e.ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(3), b.AvailableQty)
}

func TestApplyDeltaGuards(t *testing.T) {
	e := newEnv(t)
	productID := e.product(t, "P1")
	otherID := e.product(t, "P2")
	batchID := e.batch(t, productID, 5, today.AddDate(1, 0, 0))

	_, err := e.svc.ApplyDelta(e.ctx, otherID, batchID, types.NewQuantity(-1))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = e.svc.ApplyDelta(e.ctx, productID, id.New(), types.NewQuantity(1))
	assert.True(t, apperror.IsNotFound(err))

	inactive, err := e.svc.RegisterBatch(e.ctx, ledger.NewBatch{
		ProductID:      productID,
		Code:           "NEW",
		ExpirationDate: today.AddDate(2, 0, 0),
		PurchasePrice:  types.MustMoney("4"),
	})
	require.NoError(t, err)
	_, err = e.svc.ApplyDelta(e.ctx, productID, inactive.ID, types.NewQuantity(1))
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}

func TestApplyDeltasRollsBackTogether(t *testing.T) {
	e := newEnv(t)
	productID := e.product(t, "P1")
	first := e.batch(t, productID, 5, today.AddDate(1, 0, 0))
	second := e.batch(t, productID, 1, today.AddDate(1, 1, 0))

	_, err := e.svc.ApplyDeltas(e.ctx, []ledger.Movement{
		{ProductID: productID, BatchID: first, Delta: types.NewQuantity(-2)},
		{ProductID: productID, BatchID: second, Delta: types.NewQuantity(-2)},
	})
	require.Error(t, err)

	report, err := e.svc.Verify(e.ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(6), report.ProductStock)
	assert.True(t, report.Consistent)
}

func TestApplyDeltasMergesSameBatch(t *testing.T) {
	e := newEnv(t)
	productID := e.product(t, "P1")
	batchID := e.batch(t, productID, 5, today.AddDate(1, 0, 0))

	results, err := e.svc.ApplyDeltas(e.ctx, []ledger.Movement{
		{ProductID: productID, BatchID: batchID, Delta: types.NewQuantity(-4)},
		{ProductID: productID, BatchID: batchID, Delta: types.NewQuantity(2)},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.NewQuantity(3), results[0].BatchAfter)
}

func TestActivateIsIdempotent(t *testing.T) {
	e := newEnv(t)
	productID := e.product(t, "P1")
	batchID := e.batch(t, productID, 0, today.AddDate(1, 0, 0))

	require.NoError(t, e.svc.Activate(e.ctx, batchID))
	assert.True(t, apperror.IsNotFound(e.svc.Activate(e.ctx, id.New())))
}

func TestListBatchesByExpiry(t *testing.T) {
	e := newEnv(t)
	productID := e.product(t, "P1")
	expired := e.batch(t, productID, 1, today.AddDate(0, 0, -3))
	critical := e.batch(t, productID, 1, today.AddDate(0, 6, 0))
	warning := e.batch(t, productID, 1, today.AddDate(0, 6, 1))
	normal := e.batch(t, productID, 1, today.AddDate(1, 0, 1))

	ids := func(bucket expiry.Bucket) []id.ID {
		res, err := e.svc.ListBatches(e.ctx, ledger.BatchFilter{ProductID: &productID}, bucket)
		require.NoError(t, err)
		var out []id.ID
		for _, b := range res.Items {
			assert.Equal(t, bucket, b.Expiry)
			out = append(out, b.ID)
		}
		return out
	}

	assert.Equal(t, []id.ID{expired, critical}, ids(expiry.Critical))
	assert.Equal(t, []id.ID{warning}, ids(expiry.Warning))
	assert.Equal(t, []id.ID{normal}, ids(expiry.Normal))

	all, err := e.svc.ListBatches(e.ctx, ledger.BatchFilter{ProductID: &productID}, "")
	require.NoError(t, err)
	assert.EqualValues(t, 4, all.TotalCount)
	assert.Equal(t, -3, all.Items[0].DaysRemaining)

	_, err = e.svc.ListBatches(e.ctx, ledger.BatchFilter{}, "stale")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestApplyDeltasRejectsOverflowingMerge(t *testing.T) {
	e := newEnv(t)
	productID := e.product(t, "P1")
	batchID := e.batch(t, productID, 10, today.AddDate(1, 0, 0))

	huge := types.Quantity(math.MaxInt64)
	_, err := e.svc.ApplyDeltas(e.ctx, []ledger.Movement{
		{ProductID: productID, BatchID: batchID, Delta: huge},
		{ProductID: productID, BatchID: batchID, Delta: huge},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)

	report, err := e.svc.Verify(e.ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(10), report.ProductStock)
	assert.True(t, report.Consistent)
}

// lockLog records every LockBatches call reaching the repository.
type lockLog struct {
	ledger.Repository
	calls [][]id.ID
}

func (l *lockLog) LockBatches(ctx context.Context, batchIDs []id.ID) ([]*ledger.Batch, error) {
	l.calls = append(l.calls, append([]id.ID(nil), batchIDs...))
	return l.Repository.LockBatches(ctx, batchIDs)
}

func TestApplyDeltasLocksAllBatchesFirstInIDOrder(t *testing.T) {
	e := newEnv(t)
	first := e.product(t, "P1")
	second := e.product(t, "P2")
	// The batch of the second product is created first so product order and
	// batch order disagree.
	batchOfSecond := e.batch(t, second, 5, today.AddDate(1, 0, 0))
	batchOfFirst := e.batch(t, first, 5, today.AddDate(1, 0, 0))

	log := &lockLog{Repository: e.store.Ledger()}
	svc := ledger.NewService(log, e.store, ledger.WithClock(func() time.Time { return today }))

	_, err := svc.ApplyDeltas(e.ctx, []ledger.Movement{
		{ProductID: first, BatchID: batchOfFirst, Delta: types.NewQuantity(1)},
		{ProductID: second, BatchID: batchOfSecond, Delta: types.NewQuantity(1)},
	})
	require.NoError(t, err)

	require.NotEmpty(t, log.calls)
	assert.Equal(t, id.SortedUnique([]id.ID{batchOfFirst, batchOfSecond}), log.calls[0])
}
