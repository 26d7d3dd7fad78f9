package dto

import (
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/documents/sale_return"
)

// CreateReturnRequest is the body of POST /returns.
type CreateReturnRequest struct {
	SaleID       string              `json:"saleId" binding:"required"`
	Type         string              `json:"type,omitempty"`
	RefundMethod string              `json:"refundMethod" binding:"required"`
	Reason       string              `json:"reason,omitempty"`
	Comment      string              `json:"comment,omitempty"`
	Lines        []ReturnLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReturnLineRequest returns part of one sale line.
type ReturnLineRequest struct {
	SaleLineID string         `json:"saleLineId" binding:"required"`
	Quantity   types.Quantity `json:"quantity"`
	Reason     string         `json:"reason,omitempty"`
}

// ToEntity builds the return. Products, batches and prices come from the sale.
func (r *CreateReturnRequest) ToEntity() (*sale_return.Return, error) {
	saleID, err := ParseID("saleId", r.SaleID)
	if err != nil {
		return nil, err
	}

	doc := sale_return.NewReturn(saleID, sale_return.Type(r.Type), sale_return.RefundMethod(r.RefundMethod), r.Reason)
	doc.Comment = r.Comment
	for _, l := range r.Lines {
		lineID, err := ParseID("saleLineId", l.SaleLineID)
		if err != nil {
			return nil, err
		}
		doc.AddLine(lineID, l.Quantity, l.Reason)
	}
	return doc, nil
}

// ReturnListQuery filters GET /returns.
type ReturnListQuery struct {
	ListQuery
	SaleID string `form:"saleId"`
}

// ToFilter converts the query.
func (q ReturnListQuery) ToFilter() (sale_return.ListFilter, error) {
	base, err := q.ListQuery.ToFilter()
	if err != nil {
		return sale_return.ListFilter{}, err
	}
	saleID, err := ParseOptionalID("saleId", q.SaleID)
	if err != nil {
		return sale_return.ListFilter{}, err
	}
	return sale_return.ListFilter{ListFilter: base, SaleID: saleID}, nil
}
