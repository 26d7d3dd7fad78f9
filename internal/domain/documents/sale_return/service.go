package sale_return

import (
	"context"
	"fmt"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/numerator"
	"sigfarma/internal/core/tx"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/documents/sale"
	"sigfarma/internal/domain/events"
	"sigfarma/internal/domain/ledger"
	"sigfarma/pkg/logger"
)

// SaleSource gives the processor locked access to the original sale.
type SaleSource interface {
	LockForReturn(ctx context.Context, saleID id.ID) (*sale.Sale, error)
	RecordReturned(ctx context.Context, line *sale.Line, qty types.Quantity) error
}

// Service is the return transaction processor.
type Service struct {
	repo      Repository
	sales     SaleSource
	ledger    *ledger.Service
	numerator numerator.Generator
	txManager tx.Manager
	events    events.Publisher
	hooks     *domain.HookRegistry[*Return]
}

// NewService creates a new return service.
func NewService(
	repo Repository,
	sales SaleSource,
	ledgerSvc *ledger.Service,
	numerator numerator.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		sales:     sales,
		ledger:    ledgerSvc,
		numerator: numerator,
		txManager: txManager,
		events:    publisher,
		hooks:     domain.NewHookRegistry[*Return](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Return] {
	return s.hooks
}

// Create validates a return against the locked sale lines and commits it:
// the document is stored, returned quantities are recorded on the sale lines
// and every line credits its batch. Any over-return aborts the whole return.
func (s *Service) Create(ctx context.Context, doc *Return) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	doc.Attribute(ctx)
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		original, err := s.sales.LockForReturn(ctx, doc.SaleID)
		if err != nil {
			return err
		}
		if original.Status != sale.StatusCompleted {
			return apperror.NewInvalidState("sale", original.ID.String(), string(original.Status))
		}

		if err := s.resolveLines(doc, original); err != nil {
			return err
		}
		doc.price()

		cfg := numerator.DefaultConfig(NumeratorPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create return: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		movements := make([]ledger.Movement, 0, len(doc.Lines))
		for _, l := range doc.Lines {
			saleLine, _ := original.LineByID(l.SaleLineID)
			if err := s.sales.RecordReturned(ctx, saleLine, l.Quantity); err != nil {
				return err
			}
			movements = append(movements, ledger.Movement{
				ProductID: l.ProductID,
				BatchID:   l.BatchID,
				Delta:     l.Quantity,
			})
		}
		if _, err := s.ledger.ApplyDeltas(ctx, movements); err != nil {
			return err
		}

		return s.events.Publish(ctx, events.Event{
			AggregateType: "sale_return",
			AggregateID:   doc.ID,
			EventType:     events.ReturnCreated,
			Payload:       doc,
		})
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "return created",
		"id", doc.ID,
		"number", doc.Number,
		"sale_id", doc.SaleID,
		"type", doc.Type,
		"refund", doc.TotalRefund.StringFixed(types.MoneyPlaces))

	return nil
}

// resolveLines checks every requested quantity against what remains returnable,
// copies product, batch and price from the sale lines, and settles the return type.
func (s *Service) resolveLines(doc *Return, original *sale.Sale) error {
	requested, err := doc.RequestedBySaleLine()
	if err != nil {
		return err
	}

	for i := range doc.Lines {
		l := &doc.Lines[i]
		saleLine, ok := original.LineByID(l.SaleLineID)
		if !ok {
			return apperror.NewNotFound("sale line", l.SaleLineID.String()).
				WithDetail("lineNo", l.LineNo).
				WithDetail("sale_id", original.ID.String())
		}

		if total := requested[l.SaleLineID]; total > saleLine.Returnable() {
			return apperror.NewOverReturn(saleLine.LineID.String(), total.String(), saleLine.Returnable().String()).
				WithDetail("lineNo", l.LineNo)
		}

		l.ProductID = saleLine.ProductID
		l.BatchID = saleLine.BatchID
		l.UnitPrice = saleLine.UnitPrice
	}

	coversAll := true
	for _, saleLine := range original.Lines {
		if requested[saleLine.LineID] != saleLine.Returnable() {
			coversAll = false
			break
		}
	}

	switch {
	case doc.Type == "" && coversAll:
		doc.Type = TypeTotal
	case doc.Type == "":
		doc.Type = TypePartial
	case doc.Type == TypeTotal && !coversAll:
		return apperror.NewValidation("a total return must cover every remaining quantity of the sale").
			WithDetail("field", "type").
			WithDetail("sale_id", original.ID.String())
	}
	return nil
}

// GetByID retrieves a return with lines.
func (s *Service) GetByID(ctx context.Context, returnID id.ID) (*Return, error) {
	doc, err := s.repo.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, returnID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// List retrieves returns with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Return], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}
