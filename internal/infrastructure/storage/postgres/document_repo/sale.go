package document_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/documents/sale"
	"sigfarma/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
)

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
	lines lineStore[sale.Line]
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			salesTable,
			"sale",
			postgres.ExtractDBColumns[sale.Sale](),
			func() *sale.Sale { return &sale.Sale{} },
		),
		lines: newLineStore[sale.Line](txManager, saleLinesTable, "sale_id"),
	}
}

// SaveLines inserts the lines of a new sale.
func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	return r.lines.save(ctx, saleID, lines)
}

// GetLines retrieves lines for a sale.
func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	return r.lines.get(ctx, saleID, "")
}

// LockLines retrieves the lines with FOR UPDATE, so concurrent returns of the
// same sale serialize on them.
func (r *SaleRepo) LockLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	return r.lines.get(ctx, saleID, "FOR UPDATE")
}

// AddReturnedQty adds qty to the returned quantity of a line.
// The guard in WHERE mirrors CHECK (qty_returned <= quantity).
func (r *SaleRepo) AddReturnedQty(ctx context.Context, lineID id.ID, qty types.Quantity) error {
	querier := r.querier(ctx)

	var after types.Quantity
	err := querier.QueryRow(ctx, `
		UPDATE `+saleLinesTable+`
		SET qty_returned = qty_returned + $2
		WHERE line_id = $1 AND qty_returned + $2 <= quantity
		RETURNING qty_returned
	`, lineID, qty).Scan(&after)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update returned qty: %w", err)
	}

	var quantity, returned types.Quantity
	err = querier.QueryRow(ctx,
		`SELECT quantity, qty_returned FROM `+saleLinesTable+` WHERE line_id = $1`, lineID).
		Scan(&quantity, &returned)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound("sale line", lineID.String())
	}
	if err != nil {
		return fmt.Errorf("read sale line: %w", err)
	}
	return apperror.NewOverReturn(lineID.String(), qty.String(), (quantity - returned).String())
}

// List retrieves sales with filtering and pagination.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	var where []squirrel.Sqlizer
	if filter.PaymentMethod != nil {
		where = append(where, squirrel.Eq{"payment_method": *filter.PaymentMethod})
	}
	return r.list(ctx, filter.ListFilter, where...)
}
