package memory

import (
	"context"
	"sort"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/domain/catalogs/supplier"
)

// ProductRepo implements product.Repository.
type ProductRepo struct{ s *Store }

var _ product.Repository = (*ProductRepo)(nil)

// Products returns the product repository of the store.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.products {
			if existing.Code == p.Code {
				return apperror.NewValidation("product code already exists").
					WithDetail("field", "code").
					WithDetail("value", p.Code)
			}
		}
		row := *p
		row.Stock = 0
		st.products[p.ID] = row
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	var out *product.Product
	err := r.s.do(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID.String())
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	var out *product.Product
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.Code == code {
				out = &p
				return nil
			}
		}
		return apperror.NewNotFound("product", code)
	})
	return out, err
}

func (r *ProductRepo) ListLowStock(ctx context.Context, limit int) ([]*product.Product, error) {
	var out []*product.Product
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.products {
			if p.Active && p.IsLowStock() {
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, limit, 0), err
}

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct{ s *Store }

var _ supplier.Repository = (*SupplierRepo)(nil)

// Suppliers returns the supplier repository of the store.
func (s *Store) Suppliers() *SupplierRepo { return &SupplierRepo{s: s} }

func (r *SupplierRepo) Create(ctx context.Context, sup *supplier.Supplier) error {
	return r.s.do(ctx, func(st *state) error {
		st.suppliers[sup.ID] = *sup
		return nil
	})
}

func (r *SupplierRepo) GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	var out *supplier.Supplier
	err := r.s.do(ctx, func(st *state) error {
		sup, ok := st.suppliers[supplierID]
		if !ok {
			return apperror.NewNotFound("supplier", supplierID.String())
		}
		out = &sup
		return nil
	})
	return out, err
}
