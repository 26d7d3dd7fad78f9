// Package ledger_repo stores batches, product stock and the inventory table.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/ledger"
	"sigfarma/internal/infrastructure/storage/postgres"
)

const (
	batchesTable   = "batches"
	productsTable  = "cat_products"
	inventoryTable = "inventory"
)

var _ ledger.Repository = (*LedgerRepo)(nil)

// LedgerRepo implements ledger.Repository.
// Stock columns are only changed with relative UPDATE ... RETURNING statements.
type LedgerRepo struct {
	txManager *postgres.TxManager
	batchCols []string
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		batchCols: postgres.ExtractDBColumns[ledger.Batch](),
	}
}

func (r *LedgerRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *LedgerRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *LedgerRepo) selectBatches() squirrel.SelectBuilder {
	return r.builder().Select(r.batchCols...).From(batchesTable)
}

func (r *LedgerRepo) GetBatch(ctx context.Context, batchID id.ID) (*ledger.Batch, error) {
	sql, args, err := r.selectBatches().Where(squirrel.Eq{"id": batchID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b ledger.Batch
	if err := pgxscan.Get(ctx, r.querier(ctx), &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// LockBatches takes the row locks in ascending id order. ledger.Service locks
// every batch of an operation through here before it touches product rows,
// so writers never wait on each other in a cycle.
func (r *LedgerRepo) LockBatches(ctx context.Context, batchIDs []id.ID) ([]*ledger.Batch, error) {
	if len(batchIDs) == 0 {
		return nil, nil
	}

	sql, args, err := r.selectBatches().
		Where(squirrel.Eq{"id": batchIDs}).
		OrderBy("id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []*ledger.Batch
	if err := pgxscan.Select(ctx, r.querier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("lock batches: %w", err)
	}
	return batches, nil
}

func (r *LedgerRepo) CreateBatch(ctx context.Context, b *ledger.Batch) error {
	sql, args, err := r.builder().
		Insert(batchesTable).
		SetMap(postgres.StructToMap(b)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *LedgerRepo) SetBatchActive(ctx context.Context, batchID id.ID, active bool) error {
	tag, err := r.querier(ctx).Exec(ctx,
		`UPDATE `+batchesTable+` SET active = $2, updated_at = NOW() WHERE id = $1`,
		batchID, active)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}
	return nil
}

// AddBatchQty relies on CHECK (available_qty >= 0) as the last line of defence.
func (r *LedgerRepo) AddBatchQty(ctx context.Context, batchID id.ID, delta types.Quantity) (types.Quantity, error) {
	var after types.Quantity
	err := r.querier(ctx).QueryRow(ctx, `
		UPDATE `+batchesTable+`
		SET available_qty = available_qty + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING available_qty
	`, batchID, delta).Scan(&after)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperror.NewNotFound("batch", batchID.String())
	}
	return after, err
}

func (r *LedgerRepo) AddProductStock(ctx context.Context, productID id.ID, delta types.Quantity) (types.Quantity, error) {
	var stock types.Quantity
	err := r.querier(ctx).QueryRow(ctx, `
		UPDATE `+productsTable+`
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING stock
	`, productID, delta).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperror.NewNotFound("product", productID.String())
	}
	return stock, err
}

func (r *LedgerRepo) UpsertAggregate(ctx context.Context, productID id.ID, total types.Quantity) error {
	_, err := r.querier(ctx).Exec(ctx, `
		INSERT INTO `+inventoryTable+` (product_id, total_stock, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE SET
			total_stock = EXCLUDED.total_stock,
			updated_at = EXCLUDED.updated_at
	`, productID, total, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

func (r *LedgerRepo) GetProductStock(ctx context.Context, productID id.ID) (stock, minStock types.Quantity, err error) {
	err = r.querier(ctx).QueryRow(ctx,
		`SELECT stock, min_stock FROM `+productsTable+` WHERE id = $1`, productID).
		Scan(&stock, &minStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, apperror.NewNotFound("product", productID.String())
	}
	return stock, minStock, err
}

func (r *LedgerRepo) SumActiveBatches(ctx context.Context, productID id.ID) (types.Quantity, error) {
	var sum types.Quantity
	err := r.querier(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(available_qty), 0)::BIGINT
		FROM `+batchesTable+`
		WHERE product_id = $1 AND active
	`, productID).Scan(&sum)
	return sum, err
}

func (r *LedgerRepo) GetAggregate(ctx context.Context, productID id.ID) (*ledger.Aggregate, error) {
	var agg ledger.Aggregate
	err := pgxscan.Get(ctx, r.querier(ctx), &agg,
		`SELECT product_id, total_stock, updated_at FROM `+inventoryTable+` WHERE product_id = $1`, productID)
	if pgxscan.NotFound(err) {
		return &ledger.Aggregate{ProductID: productID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return &agg, nil
}

func (r *LedgerRepo) ListBatches(ctx context.Context, f ledger.BatchFilter) ([]*ledger.Batch, int64, error) {
	q := r.selectBatches()
	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.ActiveOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	if f.InStockOnly {
		q = q.Where(squirrel.Gt{"available_qty": 0})
	}
	if f.ExpiringBefore != nil {
		q = q.Where(squirrel.LtOrEq{"expiration_date": *f.ExpiringBefore})
	}
	if f.ExpiringAfter != nil {
		q = q.Where(squirrel.Gt{"expiration_date": *f.ExpiringAfter})
	}

	countSQL, countArgs, err := r.builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	q = q.OrderBy("expiration_date", "id")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	batches := make([]*ledger.Batch, 0)
	if err := pgxscan.Select(ctx, querier, &batches, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	return batches, total, nil
}
