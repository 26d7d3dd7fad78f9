// Package adjustment provides the stock Adjustment document: a physical count
// that sets batches to an authoritative quantity.
package adjustment

import (
	"context"

	"github.com/shopspring/decimal"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/entity"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
)

// Adjustment records manual corrections of batch quantities.
type Adjustment struct {
	entity.Document

	Reason string `db:"reason" json:"reason"`

	// ValueDelta is the stock valuation change at purchase price
	ValueDelta types.Money `db:"value_delta" json:"valueDelta"`

	Lines []Line `db:"-" json:"lines"`
}

// Line sets one batch to NewQty. Before, Delta and ValueDelta are filled from the locked batch.
type Line struct {
	LineID     id.ID          `db:"line_id" json:"lineId"`
	LineNo     int            `db:"line_no" json:"lineNo"`
	BatchID    id.ID          `db:"batch_id" json:"batchId"`
	ProductID  id.ID          `db:"product_id" json:"productId"`
	QtyBefore  types.Quantity `db:"qty_before" json:"qtyBefore"`
	QtyAfter   types.Quantity `db:"qty_after" json:"qtyAfter"`
	Delta      types.Quantity `db:"delta" json:"delta"`
	UnitCost   types.Money    `db:"unit_cost" json:"unitCost"`
	ValueDelta types.Money    `db:"value_delta" json:"valueDelta"`
}

// NewAdjustment creates an empty adjustment.
func NewAdjustment(reason, comment string) *Adjustment {
	doc := &Adjustment{
		Document: entity.NewDocument(),
		Reason:   reason,
		Lines:    make([]Line, 0),
	}
	doc.Comment = comment
	return doc
}

// AddLine appends a count for a batch.
func (a *Adjustment) AddLine(batchID id.ID, newQty types.Quantity) {
	a.Lines = append(a.Lines, Line{
		LineID:   id.New(),
		LineNo:   len(a.Lines) + 1,
		BatchID:  batchID,
		QtyAfter: newQty,
	})
}

// settle fills a line from the current batch state.
func (l *Line) settle(productID id.ID, current types.Quantity, unitCost types.Money) {
	l.ProductID = productID
	l.QtyBefore = current
	l.Delta = l.QtyAfter - current
	l.UnitCost = unitCost
	l.ValueDelta = types.RoundMoney(l.Delta.Decimal().Mul(unitCost))
}

func (a *Adjustment) recalculateTotals() {
	a.ValueDelta = decimal.Zero
	for _, l := range a.Lines {
		a.ValueDelta = a.ValueDelta.Add(l.ValueDelta)
	}
}

// Validate implements entity.Validatable.
func (a *Adjustment) Validate(ctx context.Context) error {
	if err := a.Document.Validate(ctx); err != nil {
		return err
	}
	if a.Reason == "" {
		return apperror.NewValidation("reason is required").WithDetail("field", "reason")
	}
	if len(a.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}

	seen := make(map[id.ID]int, len(a.Lines))
	for _, l := range a.Lines {
		if id.IsNil(l.BatchID) {
			return apperror.NewValidation("batch is required").
				WithDetail("field", "batchId").
				WithDetail("lineNo", l.LineNo)
		}
		if l.QtyAfter.IsNegative() {
			return apperror.NewValidation("new quantity cannot be negative").
				WithDetail("field", "newQty").
				WithDetail("lineNo", l.LineNo)
		}
		if l.QtyAfter > types.MaxQuantity {
			return apperror.NewValidation("new quantity out of range").
				WithDetail("field", "newQty").
				WithDetail("lineNo", l.LineNo)
		}
		if prev, dup := seen[l.BatchID]; dup {
			return apperror.NewValidation("batch appears more than once").
				WithDetail("field", "batchId").
				WithDetail("lineNo", l.LineNo).
				WithDetail("firstLineNo", prev)
		}
		seen[l.BatchID] = l.LineNo
	}
	return nil
}
