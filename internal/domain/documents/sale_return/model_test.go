package sale_return

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
)

func TestRequestedBySaleLine(t *testing.T) {
	first, second := id.New(), id.New()
	r := NewReturn(id.New(), "", RefundCash, "damaged box")
	r.AddLine(first, types.NewQuantity(1), "")
	r.AddLine(second, types.MustQuantity("0.5"), "")
	r.AddLine(first, types.NewQuantity(2), "")

	got, err := r.RequestedBySaleLine()
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(3), got[first])
	assert.Equal(t, types.Quantity(500), got[second])
	assert.Equal(t, 3, r.Lines[2].LineNo)
}

func TestPrice_UsesSaleUnitPrice(t *testing.T) {
	r := NewReturn(id.New(), TypePartial, RefundCard, "")
	r.AddLine(id.New(), types.NewQuantity(2), "")
	r.AddLine(id.New(), types.MustQuantity("1.5"), "")
	r.Lines[0].UnitPrice = types.MustMoney("500")
	r.Lines[1].UnitPrice = types.MustMoney("12.35")

	r.price()

	assert.Equal(t, "1000.00", r.Lines[0].Refund.StringFixed(2))
	assert.Equal(t, "18.53", r.Lines[1].Refund.StringFixed(2))
	assert.Equal(t, "1018.53", r.TotalRefund.StringFixed(2))
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	valid := func() *Return {
		r := NewReturn(id.New(), TypePartial, RefundCredit, "")
		r.AddLine(id.New(), types.NewQuantity(1), "")
		return r
	}

	assert.NoError(t, valid().Validate(ctx))

	tests := map[string]func(r *Return){
		"no sale":        func(r *Return) { r.SaleID = id.Nil() },
		"unknown type":   func(r *Return) { r.Type = "exchange" },
		"unknown refund": func(r *Return) { r.RefundMethod = "voucher" },
		"no lines":       func(r *Return) { r.Lines = nil },
		"no sale line":   func(r *Return) { r.Lines[0].SaleLineID = id.Nil() },
		"zero quantity":  func(r *Return) { r.Lines[0].Quantity = 0 },
		"huge quantity":  func(r *Return) { r.Lines[0].Quantity = types.MaxQuantity + 1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := valid()
			mutate(r)
			assert.True(t, apperror.HasCode(r.Validate(ctx), apperror.CodeValidation))
		})
	}
}

func TestRequestedBySaleLineOverflow(t *testing.T) {
	saleLine := id.New()
	r := NewReturn(id.New(), "", RefundCash, "")
	r.AddLine(saleLine, types.Quantity(math.MaxInt64), "")
	r.AddLine(saleLine, types.Quantity(math.MaxInt64), "")

	_, err := r.RequestedBySaleLine()
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
