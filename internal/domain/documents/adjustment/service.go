package adjustment

import (
	"context"
	"fmt"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/numerator"
	"sigfarma/internal/core/tx"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/events"
	"sigfarma/internal/domain/ledger"
	"sigfarma/pkg/logger"
)

// Service is the adjustment transaction processor.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	numerator numerator.Generator
	txManager tx.Manager
	events    events.Publisher
	hooks     *domain.HookRegistry[*Adjustment]
}

// NewService creates a new adjustment service.
func NewService(
	repo Repository,
	ledgerSvc *ledger.Service,
	numerator numerator.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		numerator: numerator,
		txManager: txManager,
		events:    publisher,
		hooks:     domain.NewHookRegistry[*Adjustment](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Adjustment] {
	return s.hooks
}

// Create locks the counted batches, records before/after for each line and
// moves every batch to its counted quantity through the ledger. All or nothing.
func (s *Service) Create(ctx context.Context, doc *Adjustment) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	doc.Attribute(ctx)
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batchIDs := make([]id.ID, 0, len(doc.Lines))
		for _, l := range doc.Lines {
			batchIDs = append(batchIDs, l.BatchID)
		}
		locked, err := s.ledger.LockBatches(ctx, batchIDs)
		if err != nil {
			return err
		}

		movements := make([]ledger.Movement, 0, len(doc.Lines))
		for i := range doc.Lines {
			l := &doc.Lines[i]
			b := locked[l.BatchID]
			if !b.Active {
				return apperror.NewInvalidState("batch", b.ID.String(), "inactive").
					WithDetail("lineNo", l.LineNo)
			}
			l.settle(b.ProductID, b.AvailableQty, b.PurchasePrice)
			if !l.Delta.IsZero() {
				movements = append(movements, ledger.Movement{
					ProductID: l.ProductID,
					BatchID:   l.BatchID,
					Delta:     l.Delta,
				})
			}
		}
		doc.recalculateTotals()

		cfg := numerator.DefaultConfig(NumeratorPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create adjustment: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		if _, err := s.ledger.ApplyDeltas(ctx, movements); err != nil {
			return err
		}

		return s.events.Publish(ctx, events.Event{
			AggregateType: "adjustment",
			AggregateID:   doc.ID,
			EventType:     events.AdjustmentCreated,
			Payload:       doc,
		})
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "adjustment created",
		"id", doc.ID,
		"number", doc.Number,
		"reason", doc.Reason,
		"lines", len(doc.Lines),
		"value_delta", doc.ValueDelta.StringFixed(types.MoneyPlaces))

	return nil
}

// GetByID retrieves an adjustment with lines.
func (s *Service) GetByID(ctx context.Context, adjustmentID id.ID) (*Adjustment, error) {
	doc, err := s.repo.GetByID(ctx, adjustmentID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, adjustmentID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// List retrieves adjustments with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Adjustment], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}
