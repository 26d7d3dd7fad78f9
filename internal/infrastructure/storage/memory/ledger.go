package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/ledger"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct{ s *Store }

var _ ledger.Repository = (*LedgerRepo)(nil)

// Ledger returns the ledger repository of the store.
func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{s: s} }

func (r *LedgerRepo) GetBatch(ctx context.Context, batchID id.ID) (*ledger.Batch, error) {
	var out *ledger.Batch
	err := r.s.do(ctx, func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok {
			return apperror.NewNotFound("batch", batchID.String())
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *LedgerRepo) LockBatches(ctx context.Context, batchIDs []id.ID) ([]*ledger.Batch, error) {
	out := make([]*ledger.Batch, 0, len(batchIDs))
	err := r.s.do(ctx, func(st *state) error {
		for _, bid := range batchIDs {
			if b, ok := st.batches[bid]; ok {
				out = append(out, &b)
			}
		}
		return nil
	})
	return out, err
}

func (r *LedgerRepo) CreateBatch(ctx context.Context, b *ledger.Batch) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.products[b.ProductID]; !ok {
			return apperror.NewNotFound("product", b.ProductID.String())
		}
		if _, ok := st.batches[b.ID]; ok {
			return fmt.Errorf("batch %s already exists", b.ID)
		}
		st.batches[b.ID] = *b
		return nil
	})
}

func (r *LedgerRepo) SetBatchActive(ctx context.Context, batchID id.ID, active bool) error {
	return r.s.do(ctx, func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok {
			return apperror.NewNotFound("batch", batchID.String())
		}
		b.Active = active
		b.UpdatedAt = time.Now().UTC()
		st.batches[batchID] = b
		return nil
	})
}

func (r *LedgerRepo) AddBatchQty(ctx context.Context, batchID id.ID, delta types.Quantity) (types.Quantity, error) {
	var after types.Quantity
	err := r.s.do(ctx, func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok {
			return apperror.NewNotFound("batch", batchID.String())
		}
		next, err := b.AvailableQty.Add(delta)
		if err != nil {
			return apperror.NewValidation("batch quantity out of range").WithDetail("batch_id", batchID.String())
		}
		// Mirrors CHECK (available_qty >= 0) of the batches table.
		if next.IsNegative() {
			return fmt.Errorf("batch %s: available quantity would become %s", batchID, next)
		}
		b.AvailableQty = next
		b.UpdatedAt = time.Now().UTC()
		st.batches[batchID] = b
		after = b.AvailableQty
		return nil
	})
	return after, err
}

func (r *LedgerRepo) AddProductStock(ctx context.Context, productID id.ID, delta types.Quantity) (types.Quantity, error) {
	var stock types.Quantity
	err := r.s.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID.String())
		}
		next, err := p.Stock.Add(delta)
		if err != nil {
			return apperror.NewValidation("product stock out of range").WithDetail("product_id", productID.String())
		}
		p.Stock = next
		st.products[productID] = p
		stock = p.Stock
		return nil
	})
	return stock, err
}

func (r *LedgerRepo) UpsertAggregate(ctx context.Context, productID id.ID, total types.Quantity) error {
	return r.s.do(ctx, func(st *state) error {
		st.aggregates[productID] = ledger.Aggregate{
			ProductID:  productID,
			TotalStock: total,
			UpdatedAt:  time.Now().UTC(),
		}
		return nil
	})
}

func (r *LedgerRepo) GetProductStock(ctx context.Context, productID id.ID) (stock, minStock types.Quantity, err error) {
	err = r.s.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID.String())
		}
		stock, minStock = p.Stock, p.MinStock
		return nil
	})
	return stock, minStock, err
}

func (r *LedgerRepo) SumActiveBatches(ctx context.Context, productID id.ID) (types.Quantity, error) {
	var sum types.Quantity
	err := r.s.do(ctx, func(st *state) error {
		for _, b := range st.batches {
			if b.ProductID == productID && b.Active {
				sum += b.AvailableQty
			}
		}
		return nil
	})
	return sum, err
}

func (r *LedgerRepo) GetAggregate(ctx context.Context, productID id.ID) (*ledger.Aggregate, error) {
	var out *ledger.Aggregate
	err := r.s.do(ctx, func(st *state) error {
		agg, ok := st.aggregates[productID]
		if !ok {
			agg = ledger.Aggregate{ProductID: productID}
		}
		out = &agg
		return nil
	})
	return out, err
}

func (r *LedgerRepo) ListBatches(ctx context.Context, f ledger.BatchFilter) ([]*ledger.Batch, int64, error) {
	var matched []*ledger.Batch
	err := r.s.do(ctx, func(st *state) error {
		for _, b := range st.batches {
			if f.ProductID != nil && b.ProductID != *f.ProductID {
				continue
			}
			if f.ActiveOnly && !b.Active {
				continue
			}
			if f.InStockOnly && !b.AvailableQty.IsPositive() {
				continue
			}
			if f.ExpiringBefore != nil && b.ExpirationDate.After(*f.ExpiringBefore) {
				continue
			}
			if f.ExpiringAfter != nil && !b.ExpirationDate.After(*f.ExpiringAfter) {
				continue
			}
			matched = append(matched, &b)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		if c := matched[i].ExpirationDate.Compare(matched[j].ExpirationDate); c != 0 {
			return c < 0
		}
		return id.Less(matched[i].ID, matched[j].ID)
	})
	return page(matched, f.Limit, f.Offset), int64(len(matched)), nil
}
