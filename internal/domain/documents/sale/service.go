package sale

import (
	"context"
	"fmt"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/numerator"
	"sigfarma/internal/core/tx"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/domain/events"
	"sigfarma/internal/domain/ledger"
	"sigfarma/pkg/logger"
)

// ProductChecker confirms products exist and are sellable.
type ProductChecker interface {
	GetActive(ctx context.Context, productID id.ID) (*product.Product, error)
}

// Service is the sale transaction processor.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	products  ProductChecker
	numerator numerator.Generator
	txManager tx.Manager
	events    events.Publisher
	hooks     *domain.HookRegistry[*Sale]
}

// NewService creates a new sale service.
func NewService(
	repo Repository,
	ledgerSvc *ledger.Service,
	products ProductChecker,
	numerator numerator.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		products:  products,
		numerator: numerator,
		txManager: txManager,
		events:    publisher,
		hooks:     domain.NewHookRegistry[*Sale](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Sale] {
	return s.hooks
}

// Create validates and commits a sale: lines are checked against locked
// batches, the document is stored and every line debits the ledger, all in one
// transaction. Nothing is persisted when any line fails.
func (s *Service) Create(ctx context.Context, doc *Sale) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	doc.Attribute(ctx)
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkProducts(ctx, doc); err != nil {
			return err
		}
		if err := s.checkStock(ctx, doc); err != nil {
			return err
		}

		cfg := numerator.DefaultConfig(NumeratorPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		movements := make([]ledger.Movement, 0, len(doc.Lines))
		for _, l := range doc.Lines {
			movements = append(movements, ledger.Movement{
				ProductID: l.ProductID,
				BatchID:   l.BatchID,
				Delta:     l.Quantity.Neg(),
			})
		}
		if _, err := s.ledger.ApplyDeltas(ctx, movements); err != nil {
			return err
		}

		return s.events.Publish(ctx, events.Event{
			AggregateType: "sale",
			AggregateID:   doc.ID,
			EventType:     events.SaleCreated,
			Payload:       doc,
		})
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "sale created",
		"id", doc.ID,
		"number", doc.Number,
		"lines", len(doc.Lines),
		"total", doc.Total.StringFixed(types.MoneyPlaces))

	return nil
}

func (s *Service) checkProducts(ctx context.Context, doc *Sale) error {
	seen := make(map[id.ID]bool, len(doc.Lines))
	for _, l := range doc.Lines {
		if seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		if _, err := s.products.GetActive(ctx, l.ProductID); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("lineNo", l.LineNo)
			}
			return fmt.Errorf("check product %s: %w", l.ProductID, err)
		}
	}
	return nil
}

// checkStock locks every referenced batch and compares the summed demand per
// batch with its available quantity. The locks are held until commit.
func (s *Service) checkStock(ctx context.Context, doc *Sale) error {
	batchIDs := make([]id.ID, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		batchIDs = append(batchIDs, l.BatchID)
	}

	locked, err := s.ledger.LockBatches(ctx, batchIDs)
	if err != nil {
		return err
	}

	for _, l := range doc.Lines {
		b := locked[l.BatchID]
		if !b.Active {
			return apperror.NewNotFound("batch", l.BatchID.String()).
				WithDetail("reason", "inactive").
				WithDetail("lineNo", l.LineNo)
		}
		if b.ProductID != l.ProductID {
			return apperror.NewValidation("batch does not belong to product").
				WithDetail("lineNo", l.LineNo).
				WithDetail("batch_id", l.BatchID.String())
		}
	}

	demand, err := doc.BatchDemand()
	if err != nil {
		return err
	}
	for _, l := range doc.Lines {
		b := locked[l.BatchID]
		if requested := demand[l.BatchID]; requested > b.AvailableQty {
			return apperror.NewInsufficientStock(b.ID.String(), requested.String(), b.AvailableQty.String()).
				WithDetail("lineNo", l.LineNo).
				WithDetail("product_id", l.ProductID.String())
		}
	}
	return nil
}

// GetByID retrieves a sale with lines.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	doc, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// List retrieves sales with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	filter.Normalize()
	if filter.PaymentMethod != nil && !filter.PaymentMethod.Valid() {
		return domain.ListResult[*Sale]{}, apperror.NewValidation("unknown payment method").
			WithDetail("field", "paymentMethod")
	}
	return s.repo.List(ctx, filter)
}

// LockForReturn loads a sale with all lines row-locked. Must run inside a transaction.
func (s *Service) LockForReturn(ctx context.Context, saleID id.ID) (*Sale, error) {
	doc, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.LockLines(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("lock lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// RecordReturned adds returned quantity to a locked line, refusing to exceed the sold quantity.
func (s *Service) RecordReturned(ctx context.Context, line *Line, qty types.Quantity) error {
	if qty > line.Returnable() {
		return apperror.NewOverReturn(line.LineID.String(), qty.String(), line.Returnable().String()).
			WithDetail("lineNo", line.LineNo)
	}
	if err := s.repo.AddReturnedQty(ctx, line.LineID, qty); err != nil {
		return fmt.Errorf("update returned qty: %w", err)
	}
	line.QtyReturned += qty
	return nil
}
