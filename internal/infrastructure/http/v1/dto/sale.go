package dto

import (
	"github.com/shopspring/decimal"

	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/documents/sale"
)

// CreateSaleRequest is the body of POST /sales.
type CreateSaleRequest struct {
	PaymentMethod  string            `json:"paymentMethod" binding:"required"`
	CashAmount     types.Money       `json:"cashAmount"`
	CardAmount     types.Money       `json:"cardAmount"`
	TransferAmount types.Money       `json:"transferAmount"`
	Comment        string            `json:"comment,omitempty"`
	Lines          []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// SaleLineRequest is one sold batch. Omitted percentages take their defaults.
type SaleLineRequest struct {
	ProductID   string           `json:"productId" binding:"required"`
	BatchID     string           `json:"batchId" binding:"required"`
	Quantity    types.Quantity   `json:"quantity"`
	UnitPrice   types.Money      `json:"unitPrice"`
	DiscountPct *decimal.Decimal `json:"discountPct,omitempty"`
	TaxPct      *decimal.Decimal `json:"taxPct,omitempty"`
}

// ToEntity builds the sale; quantities and percentages are validated by the processor.
func (r *CreateSaleRequest) ToEntity() (*sale.Sale, error) {
	doc := sale.NewSale(sale.PaymentMethod(r.PaymentMethod))
	doc.Comment = r.Comment

	for _, l := range r.Lines {
		productID, err := ParseID("productId", l.ProductID)
		if err != nil {
			return nil, err
		}
		batchID, err := ParseID("batchId", l.BatchID)
		if err != nil {
			return nil, err
		}
		doc.AddLine(sale.LineInput{
			ProductID:   productID,
			BatchID:     batchID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			TaxPct:      l.TaxPct,
		})
	}
	doc.SetTendered(r.CashAmount, r.CardAmount, r.TransferAmount)
	return doc, nil
}

// SaleListQuery filters GET /sales.
type SaleListQuery struct {
	ListQuery
	PaymentMethod string `form:"paymentMethod"`
}

// ToFilter converts the query.
func (q SaleListQuery) ToFilter() (sale.ListFilter, error) {
	base, err := q.ListQuery.ToFilter()
	if err != nil {
		return sale.ListFilter{}, err
	}
	f := sale.ListFilter{ListFilter: base}
	if q.PaymentMethod != "" {
		m := sale.PaymentMethod(q.PaymentMethod)
		f.PaymentMethod = &m
	}
	return f, nil
}
