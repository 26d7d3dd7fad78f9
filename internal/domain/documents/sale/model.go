// Package sale provides the Sale document and its transaction processor.
package sale

import (
	"context"

	"github.com/shopspring/decimal"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/entity"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentMixed    PaymentMethod = "mixed"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMixed:
		return true
	}
	return false
}

// Status of a persisted sale.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Sale is a point-of-sale document. Each line debits one batch.
type Sale struct {
	entity.Document

	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`
	Status        Status        `db:"status" json:"status"`

	// Tendered amounts by channel
	CashAmount     types.Money `db:"cash_amount" json:"cashAmount"`
	CardAmount     types.Money `db:"card_amount" json:"cardAmount"`
	TransferAmount types.Money `db:"transfer_amount" json:"transferAmount"`

	// Totals (sums of line amounts)
	Subtotal      types.Money `db:"subtotal" json:"subtotal"`
	DiscountTotal types.Money `db:"discount_total" json:"discountTotal"`
	TaxTotal      types.Money `db:"tax_total" json:"taxTotal"`
	Total         types.Money `db:"total" json:"total"`
	Change        types.Money `db:"change_amount" json:"change"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one sold quantity of a batch.
type Line struct {
	LineID    id.ID `db:"line_id" json:"lineId"`
	LineNo    int   `db:"line_no" json:"lineNo"`
	ProductID id.ID `db:"product_id" json:"productId"`
	BatchID   id.ID `db:"batch_id" json:"batchId"`

	Quantity    types.Quantity  `db:"quantity" json:"quantity"`
	UnitPrice   types.Money     `db:"unit_price" json:"unitPrice"`
	DiscountPct decimal.Decimal `db:"discount_pct" json:"discountPct"`
	TaxPct      decimal.Decimal `db:"tax_pct" json:"taxPct"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	Total          types.Money `db:"total" json:"total"`

	// QtyReturned accumulates returned quantity; never exceeds Quantity.
	QtyReturned types.Quantity `db:"qty_returned" json:"qtyReturned"`
}

// Returnable is the quantity still open for returns.
func (l *Line) Returnable() types.Quantity {
	return l.Quantity - l.QtyReturned
}

// LineInput describes a line to add. Nil percentages take their defaults.
type LineInput struct {
	ProductID   id.ID
	BatchID     id.ID
	Quantity    types.Quantity
	UnitPrice   types.Money
	DiscountPct *decimal.Decimal
	TaxPct      *decimal.Decimal
}

// NewSale creates an empty sale.
func NewSale(method PaymentMethod) *Sale {
	return &Sale{
		Document:      entity.NewDocument(),
		PaymentMethod: method,
		Status:        StatusCompleted,
		Lines:         make([]Line, 0),
	}
}

// AddLine appends a priced line and recalculates totals.
func (s *Sale) AddLine(in LineInput) {
	line := Line{
		LineID:      id.New(),
		LineNo:      len(s.Lines) + 1,
		ProductID:   in.ProductID,
		BatchID:     in.BatchID,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		DiscountPct: decimal.Zero,
		TaxPct:      DefaultTaxPct,
	}
	if in.DiscountPct != nil {
		line.DiscountPct = *in.DiscountPct
	}
	if in.TaxPct != nil {
		line.TaxPct = *in.TaxPct
	}
	line.price()

	s.Lines = append(s.Lines, line)
	s.recalculateTotals()
}

// SetTendered records the amounts handed over and recomputes change.
func (s *Sale) SetTendered(cash, card, transfer types.Money) {
	s.CashAmount = cash
	s.CardAmount = card
	s.TransferAmount = transfer
	s.recalculateTotals()
}

// price computes line amounts, each rounded to cents:
// subtotal = qty*unitPrice, discount = subtotal*discount%,
// tax = (subtotal-discount)*tax%, total = subtotal-discount+tax.
func (l *Line) price() {
	l.Subtotal = types.RoundMoney(l.Quantity.Decimal().Mul(l.UnitPrice))
	l.DiscountAmount = types.RoundMoney(types.Percent(l.Subtotal, l.DiscountPct))
	taxable := l.Subtotal.Sub(l.DiscountAmount)
	l.TaxAmount = types.RoundMoney(types.Percent(taxable, l.TaxPct))
	l.Total = taxable.Add(l.TaxAmount)
}

func (s *Sale) recalculateTotals() {
	s.Subtotal = decimal.Zero
	s.DiscountTotal = decimal.Zero
	s.TaxTotal = decimal.Zero
	s.Total = decimal.Zero

	for _, l := range s.Lines {
		s.Subtotal = s.Subtotal.Add(l.Subtotal)
		s.DiscountTotal = s.DiscountTotal.Add(l.DiscountAmount)
		s.TaxTotal = s.TaxTotal.Add(l.TaxAmount)
		s.Total = s.Total.Add(l.Total)
	}
	s.Change = s.change()
}

// change is max(tendered-total, 0) for cash and mixed payments.
func (s *Sale) change() types.Money {
	var tendered types.Money
	switch s.PaymentMethod {
	case PaymentCash:
		tendered = s.CashAmount
	case PaymentMixed:
		tendered = s.CashAmount.Add(s.CardAmount).Add(s.TransferAmount)
	default:
		return decimal.Zero
	}
	if tendered.LessThanOrEqual(s.Total) {
		return decimal.Zero
	}
	return tendered.Sub(s.Total)
}

// BatchDemand sums requested quantity per batch across lines.
func (s *Sale) BatchDemand() (map[id.ID]types.Quantity, error) {
	demand := make(map[id.ID]types.Quantity, len(s.Lines))
	for _, l := range s.Lines {
		sum, err := demand[l.BatchID].Add(l.Quantity)
		if err != nil {
			return nil, apperror.NewValidation("requested quantity out of range").
				WithDetail("lineNo", l.LineNo).
				WithDetail("batch_id", l.BatchID.String())
		}
		demand[l.BatchID] = sum
	}
	return demand, nil
}

// LineByID finds a line.
func (s *Sale) LineByID(lineID id.ID) (*Line, bool) {
	for i := range s.Lines {
		if s.Lines[i].LineID == lineID {
			return &s.Lines[i], true
		}
	}
	return nil, false
}

var hundred = decimal.NewFromInt(100)

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	if !s.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(s.PaymentMethod))
	}

	tendered := []struct {
		field  string
		amount types.Money
	}{
		{"cashAmount", s.CashAmount},
		{"cardAmount", s.CardAmount},
		{"transferAmount", s.TransferAmount},
	}
	for _, t := range tendered {
		if t.amount.IsNegative() {
			return apperror.NewValidation("tendered amount cannot be negative").
				WithDetail("field", t.field)
		}
	}

	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for _, line := range s.Lines {
		if err := line.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (l *Line) validate() error {
	fail := func(msg, field string) error {
		return apperror.NewValidation(msg).
			WithDetail("field", field).
			WithDetail("lineNo", l.LineNo)
	}

	switch {
	case id.IsNil(l.ProductID):
		return fail("product is required", "productId")
	case id.IsNil(l.BatchID):
		return fail("batch is required", "batchId")
	case !l.Quantity.IsPositive():
		return fail("quantity must be positive", "quantity")
	case l.Quantity > types.MaxQuantity:
		return fail("quantity out of range", "quantity")
	case l.UnitPrice.IsNegative():
		return fail("unit price cannot be negative", "unitPrice")
	case l.DiscountPct.IsNegative() || l.DiscountPct.GreaterThan(hundred):
		return fail("discount must be between 0 and 100", "discountPct")
	case l.TaxPct.IsNegative() || l.TaxPct.GreaterThan(hundred):
		return fail("tax must be between 0 and 100", "taxPct")
	}
	return nil
}

func mustPct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
