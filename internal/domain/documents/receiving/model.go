// Package receiving provides the supplier Receiving record: a draft that
// registers inactive batches and, once approved, brings them into stock.
package receiving

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/entity"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
)

// Status is the lifecycle state of a record. Approved is terminal.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
)

// Record documents goods received from a supplier.
type Record struct {
	entity.Document

	SupplierID    id.ID     `db:"supplier_id" json:"supplierId"`
	InvoiceNumber string    `db:"invoice_number" json:"invoiceNumber"`
	ReceivedOn    time.Time `db:"received_on" json:"receivedOn"`
	City          string    `db:"city" json:"city,omitempty"`
	Responsible   string    `db:"responsible" json:"responsible"`
	RecordType    string    `db:"record_type" json:"recordType"`

	Status     Status     `db:"status" json:"status"`
	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovedBy *string    `db:"approved_by" json:"approvedBy,omitempty"`

	TotalCost types.Money `db:"total_cost" json:"totalCost"`

	Lines []Line `db:"-" json:"lines"`
}

// Line describes one batch delivered. BatchID is set once the draft registers the batch.
type Line struct {
	LineID         id.ID          `db:"line_id" json:"lineId"`
	LineNo         int            `db:"line_no" json:"lineNo"`
	ProductID      id.ID          `db:"product_id" json:"productId"`
	BatchID        id.ID          `db:"batch_id" json:"batchId"`
	BatchCode      string         `db:"batch_code" json:"batchCode"`
	ExpirationDate time.Time      `db:"expiration_date" json:"expirationDate"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	PurchasePrice  types.Money    `db:"purchase_price" json:"purchasePrice"`
	Amount         types.Money    `db:"amount" json:"amount"`
}

// LineInput describes a delivered batch.
type LineInput struct {
	ProductID      id.ID
	BatchCode      string
	ExpirationDate time.Time
	Quantity       types.Quantity
	PurchasePrice  types.Money
}

// NewRecord creates a draft record.
func NewRecord(supplierID id.ID, invoiceNumber, responsible string, receivedOn time.Time) *Record {
	return &Record{
		Document:      entity.NewDocument(),
		SupplierID:    supplierID,
		InvoiceNumber: invoiceNumber,
		Responsible:   responsible,
		ReceivedOn:    receivedOn,
		RecordType:    "purchase",
		Status:        StatusDraft,
		Lines:         make([]Line, 0),
	}
}

// AddLine appends a delivered batch and recalculates the total cost.
func (r *Record) AddLine(in LineInput) {
	r.Lines = append(r.Lines, Line{
		LineID:         id.New(),
		LineNo:         len(r.Lines) + 1,
		ProductID:      in.ProductID,
		BatchCode:      in.BatchCode,
		ExpirationDate: in.ExpirationDate,
		Quantity:       in.Quantity,
		PurchasePrice:  in.PurchasePrice,
		Amount:         types.RoundMoney(in.Quantity.Decimal().Mul(in.PurchasePrice)),
	})
	r.recalculateTotals()
}

func (r *Record) recalculateTotals() {
	r.TotalCost = decimal.Zero
	for _, l := range r.Lines {
		r.TotalCost = r.TotalCost.Add(l.Amount)
	}
}

// CanApprove checks the state machine.
func (r *Record) CanApprove() error {
	if r.Status != StatusDraft {
		return apperror.NewInvalidState("receiving", r.ID.String(), string(r.Status))
	}
	return nil
}

// markApproved moves the record to its terminal state.
func (r *Record) markApproved(ctx context.Context, at time.Time) {
	r.Status = StatusApproved
	r.ApprovedAt = &at
	r.Attribute(ctx)
	approver := r.UpdatedBy
	r.ApprovedBy = &approver
	r.Touch()
}

// Validate implements entity.Validatable.
func (r *Record) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(r.SupplierID) {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplierId")
	}
	if r.InvoiceNumber == "" {
		return apperror.NewValidation("invoice number is required").WithDetail("field", "invoiceNumber")
	}
	if r.Responsible == "" {
		return apperror.NewValidation("responsible person is required").WithDetail("field", "responsible")
	}
	if r.ReceivedOn.IsZero() {
		return apperror.NewValidation("reception date is required").WithDetail("field", "receivedOn")
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}

	one := types.NewQuantity(1)
	for _, l := range r.Lines {
		fail := func(msg, field string) error {
			return apperror.NewValidation(msg).
				WithDetail("field", field).
				WithDetail("lineNo", l.LineNo)
		}
		switch {
		case id.IsNil(l.ProductID):
			return fail("product is required", "productId")
		case l.BatchCode == "":
			return fail("batch code is required", "batchCode")
		case l.ExpirationDate.IsZero():
			return fail("expiration date is required", "expirationDate")
		case l.Quantity < one:
			return fail("received quantity must be at least 1", "quantity")
		case l.Quantity > types.MaxQuantity:
			return fail("received quantity out of range", "quantity")
		case l.PurchasePrice.IsNegative():
			return fail("purchase price cannot be negative", "purchasePrice")
		}
	}
	return nil
}
