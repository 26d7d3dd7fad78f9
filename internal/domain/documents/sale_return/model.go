// Package sale_return provides the customer Return document and its transaction processor.
package sale_return

import (
	"context"

	"github.com/shopspring/decimal"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/entity"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
)

// Type tells whether the return covers the whole remaining sale.
type Type string

const (
	TypePartial Type = "partial"
	TypeTotal   Type = "total"
)

// RefundMethod is how money goes back to the customer.
type RefundMethod string

const (
	RefundCash     RefundMethod = "cash"
	RefundCard     RefundMethod = "card"
	RefundTransfer RefundMethod = "transfer"
	RefundCredit   RefundMethod = "credit"
)

// Valid reports whether m is a known refund method.
func (m RefundMethod) Valid() bool {
	switch m {
	case RefundCash, RefundCard, RefundTransfer, RefundCredit:
		return true
	}
	return false
}

// Status of a return.
type Status string

const StatusCompleted Status = "completed"

// Return reverses part or all of a completed sale.
type Return struct {
	entity.Document

	SaleID       id.ID        `db:"sale_id" json:"saleId"`
	Type         Type         `db:"type" json:"type"`
	RefundMethod RefundMethod `db:"refund_method" json:"refundMethod"`
	Reason       string       `db:"reason" json:"reason"`
	Status       Status       `db:"status" json:"status"`
	TotalRefund  types.Money  `db:"total_refund" json:"totalRefund"`

	Lines []Line `db:"-" json:"lines"`
}

// Line returns quantity of one sale line. Product, batch and price are copied
// from the sale line when the return is processed.
type Line struct {
	LineID     id.ID          `db:"line_id" json:"lineId"`
	LineNo     int            `db:"line_no" json:"lineNo"`
	SaleLineID id.ID          `db:"sale_line_id" json:"saleLineId"`
	ProductID  id.ID          `db:"product_id" json:"productId"`
	BatchID    id.ID          `db:"batch_id" json:"batchId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice  types.Money    `db:"unit_price" json:"unitPrice"`
	Refund     types.Money    `db:"refund" json:"refund"`
	Reason     string         `db:"reason" json:"reason,omitempty"`
}

// NewReturn creates an empty return against a sale. An empty typ is derived on processing.
func NewReturn(saleID id.ID, typ Type, method RefundMethod, reason string) *Return {
	return &Return{
		Document:     entity.NewDocument(),
		SaleID:       saleID,
		Type:         typ,
		RefundMethod: method,
		Reason:       reason,
		Status:       StatusCompleted,
		Lines:        make([]Line, 0),
	}
}

// AddLine appends a requested line.
func (r *Return) AddLine(saleLineID id.ID, qty types.Quantity, reason string) {
	r.Lines = append(r.Lines, Line{
		LineID:     id.New(),
		LineNo:     len(r.Lines) + 1,
		SaleLineID: saleLineID,
		Quantity:   qty,
		Reason:     reason,
	})
}

// RequestedBySaleLine sums requested quantity per sale line.
func (r *Return) RequestedBySaleLine() (map[id.ID]types.Quantity, error) {
	out := make(map[id.ID]types.Quantity, len(r.Lines))
	for _, l := range r.Lines {
		sum, err := out[l.SaleLineID].Add(l.Quantity)
		if err != nil {
			return nil, apperror.NewValidation("returned quantity out of range").
				WithDetail("lineNo", l.LineNo).
				WithDetail("sale_line_id", l.SaleLineID.String())
		}
		out[l.SaleLineID] = sum
	}
	return out, nil
}

// price sets the refund of every line as qty * sale unit price (before discount and tax).
func (r *Return) price() {
	r.TotalRefund = decimal.Zero
	for i := range r.Lines {
		l := &r.Lines[i]
		l.Refund = types.RoundMoney(l.Quantity.Decimal().Mul(l.UnitPrice))
		r.TotalRefund = r.TotalRefund.Add(l.Refund)
	}
}

// Validate implements entity.Validatable.
func (r *Return) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(r.SaleID) {
		return apperror.NewValidation("sale is required").WithDetail("field", "saleId")
	}
	if r.Type != "" && r.Type != TypePartial && r.Type != TypeTotal {
		return apperror.NewValidation("unknown return type").
			WithDetail("field", "type").
			WithDetail("value", string(r.Type))
	}
	if !r.RefundMethod.Valid() {
		return apperror.NewValidation("unknown refund method").
			WithDetail("field", "refundMethod").
			WithDetail("value", string(r.RefundMethod))
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for _, l := range r.Lines {
		if id.IsNil(l.SaleLineID) {
			return apperror.NewValidation("sale line is required").
				WithDetail("field", "saleLineId").
				WithDetail("lineNo", l.LineNo)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "quantity").
				WithDetail("lineNo", l.LineNo)
		}
		if l.Quantity > types.MaxQuantity {
			return apperror.NewValidation("quantity out of range").
				WithDetail("field", "quantity").
				WithDetail("lineNo", l.LineNo)
		}
	}
	return nil
}
