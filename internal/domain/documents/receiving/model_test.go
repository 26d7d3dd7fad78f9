package receiving

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigfarma/internal/core/apperror"
	appctx "sigfarma/internal/core/context"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
)

func newDraft() *Record {
	rec := NewRecord(id.New(), "FAC-1001", "Ana Rojas", time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	rec.AddLine(LineInput{
		ProductID:      id.New(),
		BatchCode:      "L-778",
		ExpirationDate: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
		Quantity:       types.NewQuantity(12),
		PurchasePrice:  types.MustMoney("1250.50"),
	})
	return rec
}

func TestRecordTotals(t *testing.T) {
	rec := newDraft()
	rec.AddLine(LineInput{
		ProductID:      id.New(),
		BatchCode:      "L-779",
		ExpirationDate: time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC),
		Quantity:       types.NewQuantity(3),
		PurchasePrice:  types.MustMoney("100"),
	})

	assert.Equal(t, "15006.00", rec.Lines[0].Amount.StringFixed(2))
	assert.Equal(t, "15306.00", rec.TotalCost.StringFixed(2))
	assert.Equal(t, StatusDraft, rec.Status)
	assert.Equal(t, "purchase", rec.RecordType)
}

func TestRecordValidate(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, newDraft().Validate(ctx))

	tests := []struct {
		name   string
		mutate func(r *Record)
		field  string
	}{
		{"missing supplier", func(r *Record) { r.SupplierID = id.Nil() }, "supplierId"},
		{"missing invoice", func(r *Record) { r.InvoiceNumber = "" }, "invoiceNumber"},
		{"missing responsible", func(r *Record) { r.Responsible = "" }, "responsible"},
		{"no lines", func(r *Record) { r.Lines = nil }, "lines"},
		{"fraction below one", func(r *Record) { r.Lines[0].Quantity = types.MustQuantity("0.5") }, "quantity"},
		{"quantity above max", func(r *Record) { r.Lines[0].Quantity = types.MaxQuantity + 1 }, "quantity"},
		{"missing expiry", func(r *Record) { r.Lines[0].ExpirationDate = time.Time{} }, "expirationDate"},
		{"missing batch code", func(r *Record) { r.Lines[0].BatchCode = "" }, "batchCode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newDraft()
			tt.mutate(rec)
			appErr, ok := apperror.AsAppError(rec.Validate(ctx))
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestApprovalStateMachine(t *testing.T) {
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "jefe-bodega"})
	rec := newDraft()
	require.NoError(t, rec.CanApprove())

	at := time.Date(2026, 2, 11, 9, 30, 0, 0, time.UTC)
	rec.markApproved(ctx, at)

	assert.Equal(t, StatusApproved, rec.Status)
	require.NotNil(t, rec.ApprovedAt)
	assert.Equal(t, at, *rec.ApprovedAt)
	require.NotNil(t, rec.ApprovedBy)
	assert.Equal(t, "jefe-bodega", *rec.ApprovedBy)
	assert.Equal(t, 2, rec.Version)

	err := rec.CanApprove()
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState))
}
