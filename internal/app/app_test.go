package app

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigfarma/internal/core/apperror"
	appctx "sigfarma/internal/core/context"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/audit"
	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/domain/catalogs/supplier"
	"sigfarma/internal/domain/documents/adjustment"
	"sigfarma/internal/domain/documents/receiving"
	"sigfarma/internal/domain/documents/sale"
	"sigfarma/internal/domain/documents/sale_return"
	"sigfarma/internal/domain/events"
	"sigfarma/internal/domain/ledger"
	"sigfarma/internal/infrastructure/storage/memory"
)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	svc      *Services
	supplier *supplier.Supplier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := memory.New()
	f := &fixture{
		t:     t,
		ctx:   appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "cashier-1"}),
		store: store,
		svc:   New(MemoryBackend(store), ledger.WithClock(func() time.Time { return now })),
		now:   now,
	}

	f.supplier = supplier.NewSupplier("SUP-1", "Drogueria Central", "900123456")
	require.NoError(t, f.svc.Suppliers.Create(f.ctx, f.supplier))
	return f
}

func (f *fixture) product(code string) *product.Product {
	f.t.Helper()
	p := product.NewProduct(code, "Acetaminofen 500mg "+code, types.MustMoney("500"), types.NewQuantity(5))
	require.NoError(f.t, f.svc.Products.Create(f.ctx, p))
	return p
}

// draft registers a receiving draft with one line and returns it.
func (f *fixture) draft(p *product.Product, code string, qty int64) *receiving.Record {
	f.t.Helper()
	rec := receiving.NewRecord(f.supplier.ID, "FAC-"+code, "Ana Rojas", f.now)
	rec.AddLine(receiving.LineInput{
		ProductID:      p.ID,
		BatchCode:      code,
		ExpirationDate: f.now.AddDate(2, 0, 0),
		Quantity:       types.NewQuantity(qty),
		PurchasePrice:  types.MustMoney("300"),
	})
	require.NoError(f.t, f.svc.Receivings.CreateDraft(f.ctx, rec))
	return rec
}

// stocked receives and approves a batch of qty units.
func (f *fixture) stocked(p *product.Product, code string, qty int64) id.ID {
	f.t.Helper()
	rec := f.draft(p, code, qty)
	_, err := f.svc.Receivings.Approve(f.ctx, rec.ID)
	require.NoError(f.t, err)
	return rec.Lines[0].BatchID
}

func (f *fixture) sell(p *product.Product, batchID id.ID, qty int64) (*sale.Sale, error) {
	doc := sale.NewSale(sale.PaymentCash)
	doc.AddLine(sale.LineInput{
		ProductID: p.ID,
		BatchID:   batchID,
		Quantity:  types.NewQuantity(qty),
		UnitPrice: types.MustMoney("500"),
	})
	return doc, f.svc.Sales.Create(f.ctx, doc)
}

func (f *fixture) giveBack(doc *sale.Sale, qty int64) (*sale_return.Return, error) {
	ret := sale_return.NewReturn(doc.ID, "", sale_return.RefundCash, "customer changed mind")
	ret.AddLine(doc.Lines[0].LineID, types.NewQuantity(qty), "")
	return ret, f.svc.Returns.Create(f.ctx, ret)
}

func (f *fixture) available(batchID id.ID) types.Quantity {
	f.t.Helper()
	b, err := f.svc.Ledger.GetBatch(f.ctx, batchID)
	require.NoError(f.t, err)
	return b.AvailableQty
}

func (f *fixture) stock(p *product.Product) types.Quantity {
	f.t.Helper()
	got, err := f.svc.Products.Get(f.ctx, p.ID)
	require.NoError(f.t, err)
	return got.Stock
}

func (f *fixture) requireConsistent(p *product.Product) {
	f.t.Helper()
	r, err := f.svc.Ledger.Verify(f.ctx, p.ID)
	require.NoError(f.t, err)
	require.True(f.t, r.Consistent, "product %s: stock=%s batches=%s aggregate=%s",
		p.Code, r.ProductStock, r.ActiveBatchSum, r.AggregateStock)
}

func TestLedgerScenarios(t *testing.T) {
	f := newFixture(t)
	p := f.product("ACE-500")
	batchB := f.stocked(p, "B", 10)
	f.requireConsistent(p)

	var sold *sale.Sale

	t.Run("A sale debits the batch", func(t *testing.T) {
		doc, err := f.sell(p, batchB, 4)
		require.NoError(t, err)
		sold = doc

		line := doc.Lines[0]
		assert.Equal(t, "2000.00", line.Subtotal.StringFixed(2))
		assert.Equal(t, "380.00", line.TaxAmount.StringFixed(2))
		assert.Equal(t, "2380.00", line.Total.StringFixed(2))
		assert.Equal(t, "2380.00", doc.Total.StringFixed(2))
		assert.Regexp(t, `^SL-\d{4}-00001$`, doc.Number)
		assert.Equal(t, "cashier-1", doc.CreatedBy)
		assert.Equal(t, types.NewQuantity(6), f.available(batchB))
		f.requireConsistent(p)
	})

	t.Run("B return credits the batch", func(t *testing.T) {
		ret, err := f.giveBack(sold, 2)
		require.NoError(t, err)

		assert.Equal(t, "1000.00", ret.TotalRefund.StringFixed(2))
		assert.Equal(t, sale_return.TypePartial, ret.Type)
		assert.Equal(t, batchB, ret.Lines[0].BatchID)
		assert.Equal(t, types.NewQuantity(8), f.available(batchB))

		stored, err := f.svc.Sales.GetByID(f.ctx, sold.ID)
		require.NoError(t, err)
		assert.Equal(t, types.NewQuantity(2), stored.Lines[0].QtyReturned)
		f.requireConsistent(p)
	})

	t.Run("C adjustment sets the counted quantity", func(t *testing.T) {
		adj := adjustment.NewAdjustment("physical count", "")
		adj.AddLine(batchB, types.NewQuantity(5))
		require.NoError(t, f.svc.Adjustments.Create(f.ctx, adj))

		assert.Equal(t, types.NewQuantity(8), adj.Lines[0].QtyBefore)
		assert.Equal(t, types.NewQuantity(-3), adj.Lines[0].Delta)
		assert.Equal(t, "-900.00", adj.ValueDelta.StringFixed(2))
		assert.Equal(t, types.NewQuantity(5), f.stock(p))
		f.requireConsistent(p)
	})

	t.Run("D receiving approval activates the batch", func(t *testing.T) {
		rec := f.draft(p, "C", 20)
		batchC := rec.Lines[0].BatchID

		b, err := f.svc.Ledger.GetBatch(f.ctx, batchC)
		require.NoError(t, err)
		assert.False(t, b.Active)
		assert.True(t, b.AvailableQty.IsZero())
		assert.Equal(t, types.NewQuantity(5), f.stock(p))

		approved, err := f.svc.Receivings.Approve(f.ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, receiving.StatusApproved, approved.Status)
		require.NotNil(t, approved.ApprovedBy)
		assert.Equal(t, "cashier-1", *approved.ApprovedBy)

		b, err = f.svc.Ledger.GetBatch(f.ctx, batchC)
		require.NoError(t, err)
		assert.True(t, b.Active)
		assert.Equal(t, types.NewQuantity(20), b.AvailableQty)
		assert.Equal(t, types.NewQuantity(25), f.stock(p))
		f.requireConsistent(p)

		_, err = f.svc.Receivings.Approve(f.ctx, rec.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
		assert.Equal(t, types.NewQuantity(25), f.stock(p))
	})

	t.Run("E oversell leaves no trace", func(t *testing.T) {
		before, err := f.svc.Sales.List(f.ctx, sale.ListFilter{ListFilter: domain.DefaultListFilter()})
		require.NoError(t, err)

		_, err = f.sell(p, batchB, 100)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		assert.Equal(t, "5.000", appErr.Details["available"])

		after, err := f.svc.Sales.List(f.ctx, sale.ListFilter{ListFilter: domain.DefaultListFilter()})
		require.NoError(t, err)
		assert.Equal(t, before.TotalCount, after.TotalCount)
		assert.Equal(t, types.NewQuantity(5), f.available(batchB))
		f.requireConsistent(p)

		// The rolled back sale did not consume a number.
		doc, err := f.sell(p, batchB, 1)
		require.NoError(t, err)
		assert.Regexp(t, `^SL-\d{4}-00002$`, doc.Number)
	})
}

func TestSaleThenFullReturnRestoresBatch(t *testing.T) {
	f := newFixture(t)
	p := f.product("IBU-400")
	batchID := f.stocked(p, "L1", 10)

	doc, err := f.sell(p, batchID, 7)
	require.NoError(t, err)
	require.Equal(t, types.NewQuantity(3), f.available(batchID))

	ret, err := f.giveBack(doc, 7)
	require.NoError(t, err)

	assert.Equal(t, sale_return.TypeTotal, ret.Type)
	assert.Equal(t, types.NewQuantity(10), f.available(batchID))
	assert.Equal(t, types.NewQuantity(10), f.stock(p))
	f.requireConsistent(p)
}

func TestReturnBoundary(t *testing.T) {
	f := newFixture(t)
	p := f.product("AMX-250")
	batchID := f.stocked(p, "L1", 10)

	doc, err := f.sell(p, batchID, 4)
	require.NoError(t, err)

	_, err = f.giveBack(doc, 3)
	require.NoError(t, err)

	// remaining is 1
	_, err = f.giveBack(doc, 2)
	require.True(t, apperror.HasCode(err, apperror.CodeOverReturn), "got %v", err)
	assert.Equal(t, types.NewQuantity(9), f.available(batchID))

	_, err = f.giveBack(doc, 1)
	require.NoError(t, err)

	_, err = f.giveBack(doc, 1)
	require.True(t, apperror.HasCode(err, apperror.CodeOverReturn))

	assert.Equal(t, types.NewQuantity(10), f.available(batchID))
	f.requireConsistent(p)
}

func TestReturnSplitAcrossLinesOfSameSaleLine(t *testing.T) {
	f := newFixture(t)
	p := f.product("LOR-10")
	batchID := f.stocked(p, "L1", 10)

	doc, err := f.sell(p, batchID, 4)
	require.NoError(t, err)

	ret := sale_return.NewReturn(doc.ID, "", sale_return.RefundCard, "duplicate charge")
	ret.AddLine(doc.Lines[0].LineID, types.NewQuantity(3), "")
	ret.AddLine(doc.Lines[0].LineID, types.NewQuantity(2), "")

	err = f.svc.Returns.Create(f.ctx, ret)
	require.True(t, apperror.HasCode(err, apperror.CodeOverReturn))

	stored, err := f.svc.Sales.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Lines[0].QtyReturned.IsZero())
	assert.Equal(t, types.NewQuantity(6), f.available(batchID))
}

func TestConcurrentSalesDoNotDoubleSpend(t *testing.T) {
	f := newFixture(t)
	p := f.product("OME-20")
	batchID := f.stocked(p, "L1", 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sell(p, batchID, 6)
		}(i)
	}
	wg.Wait()

	succeeded, insufficient := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.HasCode(err, apperror.CodeInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, types.NewQuantity(4), f.available(batchID))
	f.requireConsistent(p)
}

func TestMultiLineSaleIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	p := f.product("SAL-100")
	first := f.stocked(p, "L1", 10)
	second := f.stocked(p, "L2", 2)

	doc := sale.NewSale(sale.PaymentCard)
	doc.AddLine(sale.LineInput{ProductID: p.ID, BatchID: first, Quantity: types.NewQuantity(3), UnitPrice: types.MustMoney("800")})
	doc.AddLine(sale.LineInput{ProductID: p.ID, BatchID: second, Quantity: types.NewQuantity(5), UnitPrice: types.MustMoney("800")})

	err := f.svc.Sales.Create(f.ctx, doc)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 2, appErr.Details["lineNo"])

	assert.Equal(t, types.NewQuantity(10), f.available(first))
	assert.Equal(t, types.NewQuantity(2), f.available(second))
	for _, msg := range f.store.Outbox(f.ctx) {
		assert.NotEqual(t, events.SaleCreated, msg.EventType)
	}
	f.requireConsistent(p)
}

func TestSaleSumsDemandPerBatch(t *testing.T) {
	f := newFixture(t)
	p := f.product("DIC-50")
	batchID := f.stocked(p, "L1", 5)

	doc := sale.NewSale(sale.PaymentCash)
	doc.AddLine(sale.LineInput{ProductID: p.ID, BatchID: batchID, Quantity: types.NewQuantity(3), UnitPrice: types.MustMoney("100")})
	doc.AddLine(sale.LineInput{ProductID: p.ID, BatchID: batchID, Quantity: types.NewQuantity(3), UnitPrice: types.MustMoney("100")})

	err := f.svc.Sales.Create(f.ctx, doc)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, types.NewQuantity(5), f.available(batchID))
}

func TestSaleRejectsWrappingQuantities(t *testing.T) {
	f := newFixture(t)
	p := f.product("IBU-800")
	batchID := f.stocked(p, "L1", 10)

	huge := sale.NewSale(sale.PaymentCard)
	for range 2 {
		huge.AddLine(sale.LineInput{ProductID: p.ID, BatchID: batchID, Quantity: types.Quantity(math.MaxInt64), UnitPrice: types.MustMoney("0")})
	}
	err := f.svc.Sales.Create(f.ctx, huge)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)

	atMax := sale.NewSale(sale.PaymentCard)
	for range 2 {
		atMax.AddLine(sale.LineInput{ProductID: p.ID, BatchID: batchID, Quantity: types.MaxQuantity, UnitPrice: types.MustMoney("0")})
	}
	err = f.svc.Sales.Create(f.ctx, atMax)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock), "got %v", err)

	assert.Equal(t, types.NewQuantity(10), f.available(batchID))
	assert.Equal(t, types.NewQuantity(10), f.stock(p))
	f.requireConsistent(p)
}

func TestSaleRejectsUnusableBatches(t *testing.T) {
	f := newFixture(t)
	p := f.product("CET-10")
	other := f.product("LOR-20")
	drafted := f.draft(p, "DRAFT", 10).Lines[0].BatchID
	foreign := f.stocked(other, "F1", 10)

	t.Run("inactive batch", func(t *testing.T) {
		_, err := f.sell(p, drafted, 1)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeNotFound, appErr.Code)
		assert.Equal(t, "inactive", appErr.Details["reason"])
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := f.sell(p, id.New(), 1)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("batch of another product", func(t *testing.T) {
		_, err := f.sell(p, foreign, 1)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		assert.Equal(t, types.NewQuantity(10), f.available(foreign))
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := f.sell(other, foreign, 0)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestAdjustmentRejectsInactiveBatch(t *testing.T) {
	f := newFixture(t)
	p := f.product("VIT-C")
	active := f.stocked(p, "L1", 4)
	drafted := f.draft(p, "L2", 6).Lines[0].BatchID

	adj := adjustment.NewAdjustment("count", "")
	adj.AddLine(active, types.NewQuantity(1))
	adj.AddLine(drafted, types.NewQuantity(2))

	err := f.svc.Adjustments.Create(f.ctx, adj)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
	assert.Equal(t, types.NewQuantity(4), f.available(active))
	f.requireConsistent(p)
}

func TestAdjustmentZeroDeltaIsRecorded(t *testing.T) {
	f := newFixture(t)
	p := f.product("ZIN-50")
	batchID := f.stocked(p, "L1", 4)

	adj := adjustment.NewAdjustment("count", "shelf recount")
	adj.AddLine(batchID, types.NewQuantity(4))
	require.NoError(t, f.svc.Adjustments.Create(f.ctx, adj))

	stored, err := f.svc.Adjustments.GetByID(f.ctx, adj.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, stored.Lines[0].Delta.IsZero())
	assert.Equal(t, types.NewQuantity(4), f.available(batchID))
}

func TestApproveUnknownReceiving(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Receivings.Approve(f.ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestEventsAndAuditFollowCommits(t *testing.T) {
	f := newFixture(t)
	p := f.product("ASP-100")
	rec := f.draft(p, "L1", 3)
	_, err := f.svc.Receivings.Approve(f.ctx, rec.ID)
	require.NoError(t, err)

	var published []string
	for _, msg := range f.store.Outbox(f.ctx) {
		published = append(published, msg.EventType)
	}
	assert.Equal(t, []string{events.ReceivingDrafted, events.ReceivingApproved}, published)

	history, err := f.store.History(f.ctx, rec.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "cashier-1", history[0].UserID)
	assert.Equal(t, audit.ActionApprove, history[0].Action)
	assert.Equal(t, audit.ActionCreate, history[1].Action)
}

func TestLowStock(t *testing.T) {
	f := newFixture(t)
	p := f.product("LOW-1")
	batchID := f.stocked(p, "L1", 8)

	low, err := f.svc.Products.LowStock(f.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, low)

	_, err = f.sell(p, batchID, 3)
	require.NoError(t, err)

	low, err = f.svc.Products.LowStock(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ID)

	r, err := f.svc.Ledger.Verify(f.ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, r.LowStock)
}
