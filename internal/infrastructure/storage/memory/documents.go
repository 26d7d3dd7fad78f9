package memory

import (
	"context"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/entity"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/documents/adjustment"
	"sigfarma/internal/domain/documents/receiving"
	"sigfarma/internal/domain/documents/sale"
	"sigfarma/internal/domain/documents/sale_return"
)

// --- Sales ---

// SaleRepo implements sale.Repository.
type SaleRepo struct{ s *Store }

var _ sale.Repository = (*SaleRepo)(nil)

// Sales returns the sale repository of the store.
func (s *Store) Sales() *SaleRepo { return &SaleRepo{s: s} }

func (r *SaleRepo) Create(ctx context.Context, doc *sale.Sale) error {
	return r.s.do(ctx, func(st *state) error {
		row := *doc
		row.Lines = nil
		st.sales[doc.ID] = row
		return nil
	})
}

func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.Line) error {
	return r.s.do(ctx, func(st *state) error {
		st.saleLines[saleID] = append([]sale.Line(nil), lines...)
		return nil
	})
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	err := r.s.do(ctx, func(st *state) error {
		doc, ok := st.sales[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID.String())
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	var out []sale.Line
	err := r.s.do(ctx, func(st *state) error {
		out = append([]sale.Line{}, st.saleLines[saleID]...)
		return nil
	})
	return out, err
}

// LockLines is GetLines: the store lock held by the transaction covers the rows.
func (r *SaleRepo) LockLines(ctx context.Context, saleID id.ID) ([]sale.Line, error) {
	return r.GetLines(ctx, saleID)
}

func (r *SaleRepo) AddReturnedQty(ctx context.Context, lineID id.ID, qty types.Quantity) error {
	return r.s.do(ctx, func(st *state) error {
		for saleID, lines := range st.saleLines {
			for i := range lines {
				if lines[i].LineID != lineID {
					continue
				}
				// Mirrors CHECK (qty_returned <= quantity).
				if lines[i].QtyReturned+qty > lines[i].Quantity {
					return apperror.NewOverReturn(lineID.String(), qty.String(), lines[i].Returnable().String())
				}
				lines[i].QtyReturned += qty
				st.saleLines[saleID] = lines
				return nil
			}
		}
		return apperror.NewNotFound("sale line", lineID.String())
	})
}

func (r *SaleRepo) List(ctx context.Context, f sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	var items []*sale.Sale
	_ = r.s.do(ctx, func(st *state) error {
		for _, doc := range st.sales {
			if f.PaymentMethod != nil && doc.PaymentMethod != *f.PaymentMethod {
				continue
			}
			items = append(items, &doc)
		}
		return nil
	})
	return listDocuments(items, f.ListFilter, func(d *sale.Sale) *entity.Document { return &d.Document }), nil
}

// --- Returns ---

// ReturnRepo implements sale_return.Repository.
type ReturnRepo struct{ s *Store }

var _ sale_return.Repository = (*ReturnRepo)(nil)

// Returns returns the return repository of the store.
func (s *Store) Returns() *ReturnRepo { return &ReturnRepo{s: s} }

func (r *ReturnRepo) Create(ctx context.Context, doc *sale_return.Return) error {
	return r.s.do(ctx, func(st *state) error {
		row := *doc
		row.Lines = nil
		st.returns[doc.ID] = row
		return nil
	})
}

func (r *ReturnRepo) SaveLines(ctx context.Context, returnID id.ID, lines []sale_return.Line) error {
	return r.s.do(ctx, func(st *state) error {
		st.returnLines[returnID] = append([]sale_return.Line(nil), lines...)
		return nil
	})
}

func (r *ReturnRepo) GetByID(ctx context.Context, returnID id.ID) (*sale_return.Return, error) {
	var out *sale_return.Return
	err := r.s.do(ctx, func(st *state) error {
		doc, ok := st.returns[returnID]
		if !ok {
			return apperror.NewNotFound("return", returnID.String())
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *ReturnRepo) GetLines(ctx context.Context, returnID id.ID) ([]sale_return.Line, error) {
	var out []sale_return.Line
	err := r.s.do(ctx, func(st *state) error {
		out = append([]sale_return.Line{}, st.returnLines[returnID]...)
		return nil
	})
	return out, err
}

func (r *ReturnRepo) List(ctx context.Context, f sale_return.ListFilter) (domain.ListResult[*sale_return.Return], error) {
	var items []*sale_return.Return
	_ = r.s.do(ctx, func(st *state) error {
		for _, doc := range st.returns {
			if f.SaleID != nil && doc.SaleID != *f.SaleID {
				continue
			}
			items = append(items, &doc)
		}
		return nil
	})
	return listDocuments(items, f.ListFilter, func(d *sale_return.Return) *entity.Document { return &d.Document }), nil
}

// --- Adjustments ---

// AdjustmentRepo implements adjustment.Repository.
type AdjustmentRepo struct{ s *Store }

var _ adjustment.Repository = (*AdjustmentRepo)(nil)

// Adjustments returns the adjustment repository of the store.
func (s *Store) Adjustments() *AdjustmentRepo { return &AdjustmentRepo{s: s} }

func (r *AdjustmentRepo) Create(ctx context.Context, doc *adjustment.Adjustment) error {
	return r.s.do(ctx, func(st *state) error {
		row := *doc
		row.Lines = nil
		st.adjustments[doc.ID] = row
		return nil
	})
}

func (r *AdjustmentRepo) SaveLines(ctx context.Context, adjustmentID id.ID, lines []adjustment.Line) error {
	return r.s.do(ctx, func(st *state) error {
		st.adjustmentLines[adjustmentID] = append([]adjustment.Line(nil), lines...)
		return nil
	})
}

func (r *AdjustmentRepo) GetByID(ctx context.Context, adjustmentID id.ID) (*adjustment.Adjustment, error) {
	var out *adjustment.Adjustment
	err := r.s.do(ctx, func(st *state) error {
		doc, ok := st.adjustments[adjustmentID]
		if !ok {
			return apperror.NewNotFound("adjustment", adjustmentID.String())
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *AdjustmentRepo) GetLines(ctx context.Context, adjustmentID id.ID) ([]adjustment.Line, error) {
	var out []adjustment.Line
	err := r.s.do(ctx, func(st *state) error {
		out = append([]adjustment.Line{}, st.adjustmentLines[adjustmentID]...)
		return nil
	})
	return out, err
}

func (r *AdjustmentRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*adjustment.Adjustment], error) {
	var items []*adjustment.Adjustment
	_ = r.s.do(ctx, func(st *state) error {
		for _, doc := range st.adjustments {
			items = append(items, &doc)
		}
		return nil
	})
	return listDocuments(items, f, func(d *adjustment.Adjustment) *entity.Document { return &d.Document }), nil
}

// --- Receiving ---

// ReceivingRepo implements receiving.Repository.
type ReceivingRepo struct{ s *Store }

var _ receiving.Repository = (*ReceivingRepo)(nil)

// Receivings returns the receiving repository of the store.
func (s *Store) Receivings() *ReceivingRepo { return &ReceivingRepo{s: s} }

func (r *ReceivingRepo) Create(ctx context.Context, rec *receiving.Record) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.suppliers[rec.SupplierID]; !ok {
			return apperror.NewNotFound("supplier", rec.SupplierID.String())
		}
		row := *rec
		row.Lines = nil
		st.receivings[rec.ID] = row
		return nil
	})
}

func (r *ReceivingRepo) SaveLines(ctx context.Context, recordID id.ID, lines []receiving.Line) error {
	return r.s.do(ctx, func(st *state) error {
		st.receivingLines[recordID] = append([]receiving.Line(nil), lines...)
		return nil
	})
}

func (r *ReceivingRepo) GetByID(ctx context.Context, recordID id.ID) (*receiving.Record, error) {
	var out *receiving.Record
	err := r.s.do(ctx, func(st *state) error {
		rec, ok := st.receivings[recordID]
		if !ok {
			return apperror.NewNotFound("receiving", recordID.String())
		}
		out = &rec
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID: the store lock held by the transaction covers the row.
func (r *ReceivingRepo) GetForUpdate(ctx context.Context, recordID id.ID) (*receiving.Record, error) {
	return r.GetByID(ctx, recordID)
}

func (r *ReceivingRepo) GetLines(ctx context.Context, recordID id.ID) ([]receiving.Line, error) {
	var out []receiving.Line
	err := r.s.do(ctx, func(st *state) error {
		out = append([]receiving.Line{}, st.receivingLines[recordID]...)
		return nil
	})
	return out, err
}

func (r *ReceivingRepo) UpdateStatus(ctx context.Context, rec *receiving.Record) error {
	return r.s.do(ctx, func(st *state) error {
		row, ok := st.receivings[rec.ID]
		if !ok {
			return apperror.NewNotFound("receiving", rec.ID.String())
		}
		row.Status = rec.Status
		row.ApprovedAt = rec.ApprovedAt
		row.ApprovedBy = rec.ApprovedBy
		row.UpdatedAt = rec.UpdatedAt
		row.UpdatedBy = rec.UpdatedBy
		row.Version = rec.Version
		st.receivings[rec.ID] = row
		return nil
	})
}

func (r *ReceivingRepo) List(ctx context.Context, f receiving.ListFilter) (domain.ListResult[*receiving.Record], error) {
	var items []*receiving.Record
	_ = r.s.do(ctx, func(st *state) error {
		for _, rec := range st.receivings {
			if f.Status != nil && rec.Status != *f.Status {
				continue
			}
			if f.SupplierID != nil && rec.SupplierID != *f.SupplierID {
				continue
			}
			items = append(items, &rec)
		}
		return nil
	})
	return listDocuments(items, f.ListFilter, func(d *receiving.Record) *entity.Document { return &d.Document }), nil
}
