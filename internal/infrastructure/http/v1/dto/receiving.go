package dto

import (
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain/documents/receiving"
)

// CreateReceivingRequest is the body of POST /receivings.
type CreateReceivingRequest struct {
	SupplierID    string                 `json:"supplierId" binding:"required"`
	InvoiceNumber string                 `json:"invoiceNumber"`
	ReceivedOn    string                 `json:"receivedOn" binding:"required"`
	City          string                 `json:"city,omitempty"`
	Responsible   string                 `json:"responsible"`
	RecordType    string                 `json:"recordType,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	Lines         []ReceivingLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReceivingLineRequest is one delivered batch.
type ReceivingLineRequest struct {
	ProductID      string         `json:"productId" binding:"required"`
	BatchCode      string         `json:"batchCode"`
	ExpirationDate string         `json:"expirationDate" binding:"required"`
	Quantity       types.Quantity `json:"quantity"`
	PurchasePrice  types.Money    `json:"purchasePrice"`
}

// ToEntity builds the draft record.
func (r *CreateReceivingRequest) ToEntity() (*receiving.Record, error) {
	supplierID, err := ParseID("supplierId", r.SupplierID)
	if err != nil {
		return nil, err
	}
	receivedOn, err := ParseDate("receivedOn", r.ReceivedOn)
	if err != nil {
		return nil, err
	}

	rec := receiving.NewRecord(supplierID, r.InvoiceNumber, r.Responsible, receivedOn)
	rec.City = r.City
	rec.Comment = r.Notes
	if r.RecordType != "" {
		rec.RecordType = r.RecordType
	}

	for _, l := range r.Lines {
		productID, err := ParseID("productId", l.ProductID)
		if err != nil {
			return nil, err
		}
		expires, err := ParseDate("expirationDate", l.ExpirationDate)
		if err != nil {
			return nil, err
		}
		rec.AddLine(receiving.LineInput{
			ProductID:      productID,
			BatchCode:      l.BatchCode,
			ExpirationDate: expires,
			Quantity:       l.Quantity,
			PurchasePrice:  l.PurchasePrice,
		})
	}
	return rec, nil
}

// ReceivingListQuery filters GET /receivings.
type ReceivingListQuery struct {
	ListQuery
	Status     string `form:"status"`
	SupplierID string `form:"supplierId"`
}

// ToFilter converts the query.
func (q ReceivingListQuery) ToFilter() (receiving.ListFilter, error) {
	base, err := q.ListQuery.ToFilter()
	if err != nil {
		return receiving.ListFilter{}, err
	}
	supplierID, err := ParseOptionalID("supplierId", q.SupplierID)
	if err != nil {
		return receiving.ListFilter{}, err
	}
	f := receiving.ListFilter{ListFilter: base, SupplierID: supplierID}
	if q.Status != "" {
		st := receiving.Status(q.Status)
		f.Status = &st
	}
	return f, nil
}
