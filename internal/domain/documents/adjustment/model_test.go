package adjustment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
)

func TestSettle(t *testing.T) {
	adj := NewAdjustment("expired stock", "")
	batchID := id.New()
	productID := id.New()
	adj.AddLine(batchID, types.NewQuantity(2))

	adj.Lines[0].settle(productID, types.NewQuantity(7), types.MustMoney("1200"))
	adj.recalculateTotals()

	l := adj.Lines[0]
	assert.Equal(t, productID, l.ProductID)
	assert.Equal(t, types.NewQuantity(7), l.QtyBefore)
	assert.Equal(t, types.NewQuantity(-5), l.Delta)
	assert.Equal(t, "-6000.00", l.ValueDelta.StringFixed(2))
	assert.Equal(t, "-6000.00", adj.ValueDelta.StringFixed(2))
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("reason required", func(t *testing.T) {
		adj := NewAdjustment("", "")
		adj.AddLine(id.New(), types.NewQuantity(1))
		assert.True(t, apperror.HasCode(adj.Validate(ctx), apperror.CodeValidation))
	})

	t.Run("negative target", func(t *testing.T) {
		adj := NewAdjustment("count", "")
		adj.AddLine(id.New(), types.NewQuantity(-1))
		assert.True(t, apperror.HasCode(adj.Validate(ctx), apperror.CodeValidation))
	})

	t.Run("target above max", func(t *testing.T) {
		adj := NewAdjustment("count", "")
		adj.AddLine(id.New(), types.MaxQuantity+1)
		assert.True(t, apperror.HasCode(adj.Validate(ctx), apperror.CodeValidation))
	})

	t.Run("duplicate batch", func(t *testing.T) {
		batchID := id.New()
		adj := NewAdjustment("count", "")
		adj.AddLine(batchID, types.NewQuantity(1))
		adj.AddLine(batchID, types.NewQuantity(3))

		appErr, ok := apperror.AsAppError(adj.Validate(ctx))
		require.True(t, ok)
		assert.Equal(t, 2, appErr.Details["lineNo"])
		assert.Equal(t, 1, appErr.Details["firstLineNo"])
	})

	t.Run("zero target is allowed", func(t *testing.T) {
		adj := NewAdjustment("breakage", "")
		adj.AddLine(id.New(), 0)
		assert.NoError(t, adj.Validate(ctx))
	})
}
