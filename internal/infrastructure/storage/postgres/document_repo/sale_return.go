package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"sigfarma/internal/core/id"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/documents/sale_return"
	"sigfarma/internal/infrastructure/storage/postgres"
)

const (
	returnsTable     = "doc_sale_returns"
	returnLinesTable = "doc_sale_return_lines"
)

var _ sale_return.Repository = (*ReturnRepo)(nil)

// ReturnRepo implements sale_return.Repository.
type ReturnRepo struct {
	*BaseDocumentRepo[*sale_return.Return]
	lines lineStore[sale_return.Line]
}

// NewReturnRepo creates a new return repository.
func NewReturnRepo(txManager *postgres.TxManager) *ReturnRepo {
	return &ReturnRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			returnsTable,
			"sale return",
			postgres.ExtractDBColumns[sale_return.Return](),
			func() *sale_return.Return { return &sale_return.Return{} },
		),
		lines: newLineStore[sale_return.Line](txManager, returnLinesTable, "return_id"),
	}
}

func (r *ReturnRepo) SaveLines(ctx context.Context, returnID id.ID, lines []sale_return.Line) error {
	return r.lines.save(ctx, returnID, lines)
}

func (r *ReturnRepo) GetLines(ctx context.Context, returnID id.ID) ([]sale_return.Line, error) {
	return r.lines.get(ctx, returnID, "")
}

func (r *ReturnRepo) List(ctx context.Context, filter sale_return.ListFilter) (domain.ListResult[*sale_return.Return], error) {
	var where []squirrel.Sqlizer
	if filter.SaleID != nil {
		where = append(where, squirrel.Eq{"sale_id": *filter.SaleID})
	}
	return r.list(ctx, filter.ListFilter, where...)
}
