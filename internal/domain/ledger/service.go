package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/tx"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/expiry"
	"sigfarma/pkg/logger"
)

// Service is the only writer of batch, product and aggregate stock.
type Service struct {
	repo       Repository
	txManager  tx.Manager
	classifier expiry.Classifier
	now        func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithClassifier overrides the 6/12 month expiry thresholds.
func WithClassifier(c expiry.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithClock overrides the clock used for expiry classification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the ledger service.
func NewService(repo Repository, txManager tx.Manager, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		txManager:  txManager,
		classifier: expiry.DefaultClassifier(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyDelta moves stock of one batch by delta and propagates the change to the
// product and its inventory row. It joins the caller's transaction when there is one.
//
// The batch must be active and belong to productID. Callers validate availability
// beforehand; a result below zero is an invariant violation, not a user error.
func (s *Service) ApplyDelta(ctx context.Context, productID, batchID id.ID, delta types.Quantity) (Result, error) {
	var res Result
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.applyDelta(ctx, productID, batchID, delta)
		return err
	})
	return res, err
}

func (s *Service) applyDelta(ctx context.Context, productID, batchID id.ID, delta types.Quantity) (Result, error) {
	locked, err := s.repo.LockBatches(ctx, []id.ID{batchID})
	if err != nil {
		return Result{}, fmt.Errorf("lock batch %s: %w", batchID, err)
	}
	if len(locked) == 0 {
		return Result{}, apperror.NewNotFound("batch", batchID.String())
	}
	b := locked[0]

	if b.ProductID != productID {
		return Result{}, apperror.NewValidation("batch does not belong to product").
			WithDetail("batch_id", batchID.String()).
			WithDetail("product_id", productID.String())
	}
	if !b.Active {
		return Result{}, apperror.NewInvalidState("batch", batchID.String(), "inactive")
	}

	res := Result{
		ProductID:   productID,
		BatchID:     batchID,
		Delta:       delta,
		BatchBefore: b.AvailableQty,
		BatchAfter:  b.AvailableQty,
	}
	if delta.IsZero() {
		stock, _, err := s.repo.GetProductStock(ctx, productID)
		if err != nil {
			return Result{}, fmt.Errorf("get product stock: %w", err)
		}
		res.ProductStock = stock
		return res, nil
	}

	if (b.AvailableQty + delta).IsNegative() {
		logger.Error(ctx, "negative stock invariant violation",
			"batch_id", batchID,
			"product_id", productID,
			"available", b.AvailableQty,
			"delta", delta)
		return Result{}, apperror.NewNegativeStockInvariant(batchID.String(), b.AvailableQty.String(), delta.String())
	}

	after, err := s.repo.AddBatchQty(ctx, batchID, delta)
	if err != nil {
		return Result{}, fmt.Errorf("update batch qty: %w", err)
	}
	stock, err := s.repo.AddProductStock(ctx, productID, delta)
	if err != nil {
		return Result{}, fmt.Errorf("update product stock: %w", err)
	}
	if err := s.repo.UpsertAggregate(ctx, productID, stock); err != nil {
		return Result{}, fmt.Errorf("upsert inventory: %w", err)
	}

	res.BatchAfter = after
	res.ProductStock = stock
	return res, nil
}

// ApplyDeltas applies several movements in one transaction. Movements on the
// same batch are merged. Every batch is locked up front in ascending id order,
// then product rows are touched in ascending id order, so all writers acquire
// row locks in the same global order.
func (s *Service) ApplyDeltas(ctx context.Context, movements []Movement) ([]Result, error) {
	merged, err := mergeMovements(movements)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(merged))
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batchIDs := make([]id.ID, 0, len(merged))
		for _, m := range merged {
			batchIDs = append(batchIDs, m.BatchID)
		}
		if _, err := s.LockBatches(ctx, batchIDs); err != nil {
			return err
		}

		for _, m := range merged {
			res, err := s.applyDelta(ctx, m.ProductID, m.BatchID, m.Delta)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func mergeMovements(movements []Movement) ([]Movement, error) {
	index := make(map[id.ID]int, len(movements))
	merged := make([]Movement, 0, len(movements))
	for _, m := range movements {
		if i, ok := index[m.BatchID]; ok {
			sum, err := merged[i].Delta.Add(m.Delta)
			if err != nil {
				return nil, apperror.NewValidation("movement total out of range").
					WithDetail("batch_id", m.BatchID.String())
			}
			merged[i].Delta = sum
			continue
		}
		index[m.BatchID] = len(merged)
		merged = append(merged, m)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].ProductID != merged[j].ProductID {
			return id.Less(merged[i].ProductID, merged[j].ProductID)
		}
		return id.Less(merged[i].BatchID, merged[j].BatchID)
	})
	return merged, nil
}

// LockBatches row-locks the given batches in ascending id order and returns them by id.
// Any missing batch yields NotFound. Must run inside a transaction.
func (s *Service) LockBatches(ctx context.Context, batchIDs []id.ID) (map[id.ID]*Batch, error) {
	ordered := id.SortedUnique(batchIDs)
	batches, err := s.repo.LockBatches(ctx, ordered)
	if err != nil {
		return nil, fmt.Errorf("lock batches: %w", err)
	}

	byID := make(map[id.ID]*Batch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}
	for _, bid := range ordered {
		if _, ok := byID[bid]; !ok {
			return nil, apperror.NewNotFound("batch", bid.String())
		}
	}
	return byID, nil
}

// RegisterBatch creates an inactive batch with zero quantity. It has no stock effect.
func (s *Service) RegisterBatch(ctx context.Context, nb NewBatch) (*Batch, error) {
	if err := nb.Validate(ctx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &Batch{
		ID:             id.New(),
		ProductID:      nb.ProductID,
		Code:           nb.Code,
		ExpirationDate: nb.ExpirationDate,
		PurchasePrice:  nb.PurchasePrice,
		ReceivingID:    nb.ReceivingID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateBatch(ctx, b)
	})
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	return b, nil
}

// Activate makes a batch eligible for stock movements. Activating an active batch is a no-op.
func (s *Service) Activate(ctx context.Context, batchID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.LockBatches(ctx, []id.ID{batchID})
		if err != nil {
			return err
		}
		if locked[batchID].Active {
			return nil
		}
		if err := s.repo.SetBatchActive(ctx, batchID, true); err != nil {
			return fmt.Errorf("activate batch: %w", err)
		}
		return nil
	})
}

// GetBatch returns a batch with its expiry classification.
func (s *Service) GetBatch(ctx context.Context, batchID id.ID) (*BatchView, error) {
	b, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return s.view(b, s.now()), nil
}

// ListBatches lists batches; bucket, when set, keeps only batches in that expiry bucket.
func (s *Service) ListBatches(ctx context.Context, filter BatchFilter, bucket expiry.Bucket) (domain.ListResult[*BatchView], error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	now := s.now()

	if bucket != "" {
		if !bucket.Valid() {
			return domain.ListResult[*BatchView]{}, apperror.NewValidation("unknown expiry bucket").
				WithDetail("bucket", string(bucket))
		}
		s.bucketBounds(&filter, bucket, now)
	}

	batches, total, err := s.repo.ListBatches(ctx, filter)
	if err != nil {
		return domain.ListResult[*BatchView]{}, fmt.Errorf("list batches: %w", err)
	}

	items := make([]*BatchView, 0, len(batches))
	for _, b := range batches {
		items = append(items, s.view(b, now))
	}
	return domain.ListResult[*BatchView]{
		Items:      items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// bucketBounds turns a bucket into an expiration date range so storage can filter it.
func (s *Service) bucketBounds(filter *BatchFilter, bucket expiry.Bucket, now time.Time) {
	critical := s.classifier.CriticalUntil(now)
	warning := s.classifier.WarningUntil(now)
	// Bounds are day-granular, comparisons are against the end of the day.
	endOf := func(t time.Time) *time.Time {
		v := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		return &v
	}

	switch bucket {
	case expiry.Critical:
		filter.ExpiringBefore = endOf(critical)
	case expiry.Warning:
		filter.ExpiringAfter = endOf(critical)
		filter.ExpiringBefore = endOf(warning)
	case expiry.Normal:
		filter.ExpiringAfter = endOf(warning)
	}
}

func (s *Service) view(b *Batch, now time.Time) *BatchView {
	return &BatchView{
		Batch:         b,
		Expiry:        s.classifier.Classify(b.ExpirationDate, now),
		DaysRemaining: expiry.DaysRemaining(b.ExpirationDate, now),
	}
}

// Verify checks that the product's stock equals the sum of its active batches
// and that its inventory row mirrors it. Read only.
func (s *Service) Verify(ctx context.Context, productID id.ID) (*Report, error) {
	var (
		stock, minStock, sum types.Quantity
		agg              *Aggregate
	)
	read := func(ctx context.Context) error {
		var err error
		if stock, minStock, err = s.repo.GetProductStock(ctx, productID); err != nil {
			return err
		}
		if sum, err = s.repo.SumActiveBatches(ctx, productID); err != nil {
			return fmt.Errorf("sum batches: %w", err)
		}
		if agg, err = s.repo.GetAggregate(ctx, productID); err != nil {
			return fmt.Errorf("get inventory: %w", err)
		}
		return nil
	}
	// The three reads must see one snapshot or a concurrent sale shows up as divergence.
	var err error
	if ro, ok := s.txManager.(tx.ReadOnlyManager); ok {
		err = ro.ReadOnly(ctx, read)
	} else {
		err = s.txManager.RunInTransaction(ctx, read)
	}
	if err != nil {
		return nil, err
	}

	r := &Report{
		ProductID:      productID,
		ProductStock:   stock,
		ActiveBatchSum: sum,
		AggregateStock: agg.TotalStock,
		MinStock:       minStock,
		LowStock:       stock <= minStock,
		Consistent:     stock == sum && agg.TotalStock == stock,
	}
	if !r.Consistent {
		logger.Error(ctx, "ledger divergence detected",
			"product_id", productID,
			"product_stock", stock,
			"batch_sum", sum,
			"aggregate", agg.TotalStock)
	}
	return r, nil
}
