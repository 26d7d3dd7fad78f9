package document_repo

import (
	"context"

	"sigfarma/internal/core/id"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/documents/adjustment"
	"sigfarma/internal/infrastructure/storage/postgres"
)

const (
	adjustmentsTable     = "doc_adjustments"
	adjustmentLinesTable = "doc_adjustment_lines"
)

var _ adjustment.Repository = (*AdjustmentRepo)(nil)

// AdjustmentRepo implements adjustment.Repository.
type AdjustmentRepo struct {
	*BaseDocumentRepo[*adjustment.Adjustment]
	lines lineStore[adjustment.Line]
}

// NewAdjustmentRepo creates a new adjustment repository.
func NewAdjustmentRepo(txManager *postgres.TxManager) *AdjustmentRepo {
	return &AdjustmentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			adjustmentsTable,
			"adjustment",
			postgres.ExtractDBColumns[adjustment.Adjustment](),
			func() *adjustment.Adjustment { return &adjustment.Adjustment{} },
		),
		lines: newLineStore[adjustment.Line](txManager, adjustmentLinesTable, "adjustment_id"),
	}
}

func (r *AdjustmentRepo) SaveLines(ctx context.Context, adjustmentID id.ID, lines []adjustment.Line) error {
	return r.lines.save(ctx, adjustmentID, lines)
}

func (r *AdjustmentRepo) GetLines(ctx context.Context, adjustmentID id.ID) ([]adjustment.Line, error) {
	return r.lines.get(ctx, adjustmentID, "")
}

func (r *AdjustmentRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*adjustment.Adjustment], error) {
	return r.list(ctx, filter)
}
