// Package ledger owns the three stock counters of the system: batch available
// quantity, product stock and the per-product inventory row. Every stock change
// goes through Service.ApplyDelta.
package ledger

import (
	"context"
	"time"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/expiry"
)

// Batch is a dated quantity of one product received together.
// Batches are never deleted; a sold-out batch stays with zero quantity.
type Batch struct {
	ID             id.ID          `db:"id" json:"id"`
	ProductID      id.ID          `db:"product_id" json:"productId"`
	Code           string         `db:"code" json:"code"`
	ExpirationDate time.Time      `db:"expiration_date" json:"expirationDate"`
	AvailableQty   types.Quantity `db:"available_qty" json:"availableQty"`
	PurchasePrice  types.Money    `db:"purchase_price" json:"purchasePrice"`
	Active         bool           `db:"active" json:"active"`
	ReceivingID    *id.ID         `db:"receiving_id" json:"receivingId,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// Aggregate is the denormalized per-product inventory row. It mirrors Product.Stock.
type Aggregate struct {
	ProductID  id.ID          `db:"product_id" json:"productId"`
	TotalStock types.Quantity `db:"total_stock" json:"totalStock"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}

// Result describes one applied delta.
type Result struct {
	ProductID    id.ID          `json:"productId"`
	BatchID      id.ID          `json:"batchId"`
	Delta        types.Quantity `json:"delta"`
	BatchBefore  types.Quantity `json:"batchBefore"`
	BatchAfter   types.Quantity `json:"batchAfter"`
	ProductStock types.Quantity `json:"productStock"`
}

// Movement is one requested delta, used by ApplyDeltas.
type Movement struct {
	ProductID id.ID
	BatchID   id.ID
	Delta     types.Quantity
}

// NewBatch describes a batch to register as inactive with zero quantity.
type NewBatch struct {
	ProductID      id.ID
	Code           string
	ExpirationDate time.Time
	PurchasePrice  types.Money
	ReceivingID    *id.ID
}

// Validate checks the batch description.
func (n NewBatch) Validate(ctx context.Context) error {
	if id.IsNil(n.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if n.Code == "" {
		return apperror.NewValidation("batch code is required").WithDetail("field", "code")
	}
	if n.ExpirationDate.IsZero() {
		return apperror.NewValidation("expiration date is required").WithDetail("field", "expirationDate")
	}
	if n.PurchasePrice.IsNegative() {
		return apperror.NewValidation("purchase price cannot be negative").WithDetail("field", "purchasePrice")
	}
	return nil
}

// BatchView is a batch with its derived expiration classification.
type BatchView struct {
	*Batch
	Expiry        expiry.Bucket `json:"expiry"`
	DaysRemaining int           `json:"daysRemaining"`
}

// BatchFilter selects batches for listing.
type BatchFilter struct {
	ProductID  *id.ID
	ActiveOnly bool
	// InStockOnly skips batches with zero quantity
	InStockOnly bool
	// ExpiringBefore keeps batches expiring on or before the date
	ExpiringBefore *time.Time
	// ExpiringAfter keeps batches expiring strictly after the date
	ExpiringAfter *time.Time

	Limit  int
	Offset int
}

// Report is the outcome of a ledger consistency check for one product.
type Report struct {
	ProductID      id.ID          `json:"productId"`
	ProductStock   types.Quantity `json:"productStock"`
	ActiveBatchSum types.Quantity `json:"activeBatchSum"`
	AggregateStock types.Quantity `json:"aggregateStock"`
	MinStock       types.Quantity `json:"minStock"`
	LowStock       bool           `json:"lowStock"`
	Consistent     bool           `json:"consistent"`
}
