package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/infrastructure/storage/postgres"
)

const productsTable = "cat_products"

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository. It never writes the stock column
// after insert; the ledger does.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			productsTable,
			"product",
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

// Create inserts a product with zero stock. A duplicate code violates the
// unique index and surfaces as a validation error.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.BaseCatalogRepo.Create(ctx, p, map[string]any{"stock": 0})
}

func (r *ProductRepo) ListLowStock(ctx context.Context, limit int) ([]*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"active": true}).
		Where(squirrel.Expr("stock <= min_stock")).
		OrderBy("code")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.FindAll(ctx, q)
}
