package catalog_repo

import (
	"context"

	"sigfarma/internal/domain/catalogs/supplier"
	"sigfarma/internal/infrastructure/storage/postgres"
)

const suppliersTable = "cat_suppliers"

var _ supplier.Repository = (*SupplierRepo)(nil)

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	*BaseCatalogRepo[*supplier.Supplier]
}

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo(txManager *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			suppliersTable,
			"supplier",
			postgres.ExtractDBColumns[supplier.Supplier](),
			func() *supplier.Supplier { return &supplier.Supplier{} },
		),
	}
}

func (r *SupplierRepo) Create(ctx context.Context, s *supplier.Supplier) error {
	return r.BaseCatalogRepo.Create(ctx, s, nil)
}
