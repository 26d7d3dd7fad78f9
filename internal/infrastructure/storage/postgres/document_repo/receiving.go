package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/documents/receiving"
	"sigfarma/internal/infrastructure/storage/postgres"
)

const (
	receivingsTable     = "doc_receivings"
	receivingLinesTable = "doc_receiving_lines"
)

var _ receiving.Repository = (*ReceivingRepo)(nil)

// ReceivingRepo implements receiving.Repository.
type ReceivingRepo struct {
	*BaseDocumentRepo[*receiving.Record]
	lines lineStore[receiving.Line]
}

// NewReceivingRepo creates a new receiving record repository.
func NewReceivingRepo(txManager *postgres.TxManager) *ReceivingRepo {
	return &ReceivingRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			receivingsTable,
			"receiving",
			postgres.ExtractDBColumns[receiving.Record](),
			func() *receiving.Record { return &receiving.Record{} },
		),
		lines: newLineStore[receiving.Line](txManager, receivingLinesTable, "receiving_id"),
	}
}

func (r *ReceivingRepo) SaveLines(ctx context.Context, recordID id.ID, lines []receiving.Line) error {
	return r.lines.save(ctx, recordID, lines)
}

func (r *ReceivingRepo) GetLines(ctx context.Context, recordID id.ID) ([]receiving.Line, error) {
	return r.lines.get(ctx, recordID, "")
}

// UpdateStatus persists the approval transition.
func (r *ReceivingRepo) UpdateStatus(ctx context.Context, rec *receiving.Record) error {
	sql, args, err := r.Builder().
		Update(receivingsTable).
		Set("status", rec.Status).
		Set("approved_at", rec.ApprovedAt).
		Set("approved_by", rec.ApprovedBy).
		Set("updated_at", rec.UpdatedAt).
		Set("updated_by", rec.UpdatedBy).
		Set("version", rec.Version).
		Where(squirrel.Eq{"id": rec.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update receiving status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("receiving", rec.ID.String())
	}
	return nil
}

func (r *ReceivingRepo) List(ctx context.Context, filter receiving.ListFilter) (domain.ListResult[*receiving.Record], error) {
	var where []squirrel.Sqlizer
	if filter.Status != nil {
		where = append(where, squirrel.Eq{"status": *filter.Status})
	}
	if filter.SupplierID != nil {
		where = append(where, squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	return r.list(ctx, filter.ListFilter, where...)
}
