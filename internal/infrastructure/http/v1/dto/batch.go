package dto

import (
	"sigfarma/internal/domain/expiry"
	"sigfarma/internal/domain/ledger"
)

// BatchListQuery filters GET /batches.
type BatchListQuery struct {
	ProductID   string `form:"productId"`
	Expiry      string `form:"expiry"`
	ActiveOnly  bool   `form:"activeOnly"`
	InStockOnly bool   `form:"inStock"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query; the expiry bucket is resolved by the ledger.
func (q BatchListQuery) ToFilter() (ledger.BatchFilter, expiry.Bucket, error) {
	productID, err := ParseOptionalID("productId", q.ProductID)
	if err != nil {
		return ledger.BatchFilter{}, "", err
	}
	return ledger.BatchFilter{
		ProductID:   productID,
		ActiveOnly:  q.ActiveOnly,
		InStockOnly: q.InStockOnly,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}, expiry.Bucket(q.Expiry), nil
}
