package receiving

import (
	"context"
	"fmt"
	"time"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/numerator"
	"sigfarma/internal/core/tx"
	"sigfarma/internal/core/types"
	"sigfarma/internal/domain"
	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/domain/catalogs/supplier"
	"sigfarma/internal/domain/events"
	"sigfarma/internal/domain/ledger"
	"sigfarma/pkg/logger"
)

// ProductChecker confirms products exist and are active.
type ProductChecker interface {
	GetActive(ctx context.Context, productID id.ID) (*product.Product, error)
}

// SupplierReader reads suppliers.
type SupplierReader interface {
	GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error)
}

// Service runs the receiving workflow: draft, then approve.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	products  ProductChecker
	suppliers SupplierReader
	numerator numerator.Generator
	txManager tx.Manager
	events    events.Publisher
	hooks     *domain.HookRegistry[*Record]
}

// NewService creates a new receiving service.
func NewService(
	repo Repository,
	ledgerSvc *ledger.Service,
	products ProductChecker,
	suppliers SupplierReader,
	numerator numerator.Generator,
	txManager tx.Manager,
	publisher events.Publisher,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		products:  products,
		suppliers: suppliers,
		numerator: numerator,
		txManager: txManager,
		events:    publisher,
		hooks:     domain.NewHookRegistry[*Record](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Record] {
	return s.hooks
}

// CreateDraft stores a draft record and registers one inactive, empty batch per line.
// Stock is not affected until approval.
func (s *Service) CreateDraft(ctx context.Context, rec *Record) error {
	if err := s.hooks.RunBeforeCreate(ctx, rec); err != nil {
		return err
	}

	rec.Status = StatusDraft
	rec.Attribute(ctx)
	if err := rec.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, rec); err != nil {
			return err
		}

		cfg := numerator.DefaultConfig(NumeratorPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, rec.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		rec.Number = number

		if err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("create receiving: %w", err)
		}

		for i := range rec.Lines {
			l := &rec.Lines[i]
			b, err := s.ledger.RegisterBatch(ctx, ledger.NewBatch{
				ProductID:      l.ProductID,
				Code:           l.BatchCode,
				ExpirationDate: l.ExpirationDate,
				PurchasePrice:  l.PurchasePrice,
				ReceivingID:    &rec.ID,
			})
			if err != nil {
				if appErr, ok := apperror.AsAppError(err); ok {
					return appErr.WithDetail("lineNo", l.LineNo)
				}
				return err
			}
			l.BatchID = b.ID
		}

		if err := s.repo.SaveLines(ctx, rec.ID, rec.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		return s.events.Publish(ctx, events.Event{
			AggregateType: "receiving",
			AggregateID:   rec.ID,
			EventType:     events.ReceivingDrafted,
			Payload:       rec,
		})
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, rec); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "receiving draft created",
		"id", rec.ID,
		"number", rec.Number,
		"supplier_id", rec.SupplierID,
		"lines", len(rec.Lines))

	return nil
}

func (s *Service) checkReferences(ctx context.Context, rec *Record) error {
	sup, err := s.suppliers.GetByID(ctx, rec.SupplierID)
	if err != nil {
		return err
	}
	if !sup.Active {
		return apperror.NewNotFound("supplier", rec.SupplierID.String()).
			WithDetail("reason", "inactive")
	}

	checked := make(map[id.ID]bool, len(rec.Lines))
	for _, l := range rec.Lines {
		if checked[l.ProductID] {
			continue
		}
		checked[l.ProductID] = true
		if _, err := s.products.GetActive(ctx, l.ProductID); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("lineNo", l.LineNo)
			}
			return fmt.Errorf("check product %s: %w", l.ProductID, err)
		}
	}
	return nil
}

// Approve activates every batch of a draft record and credits the received
// quantities to the ledger. Only drafts can be approved; the record row is
// locked so concurrent approvals of the same record serialize and the loser
// sees InvalidState.
func (s *Service) Approve(ctx context.Context, recordID id.ID) (*Record, error) {
	var rec *Record
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetForUpdate(ctx, recordID)
		if err != nil {
			return err
		}
		if err := rec.CanApprove(); err != nil {
			return err
		}

		rec.Lines, err = s.repo.GetLines(ctx, recordID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}

		batchIDs := make([]id.ID, 0, len(rec.Lines))
		for _, l := range rec.Lines {
			batchIDs = append(batchIDs, l.BatchID)
		}
		if _, err := s.ledger.LockBatches(ctx, batchIDs); err != nil {
			return err
		}

		movements := make([]ledger.Movement, 0, len(rec.Lines))
		for _, l := range rec.Lines {
			if err := s.ledger.Activate(ctx, l.BatchID); err != nil {
				return fmt.Errorf("activate batch %s: %w", l.BatchID, err)
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

		rec.markApproved(ctx, time.Now().UTC())
		if err := s.repo.UpdateStatus(ctx, rec); err != nil {
			return fmt.Errorf("update receiving: %w", err)
		}

		return s.events.Publish(ctx, events.Event{
			AggregateType: "receiving",
			AggregateID:   rec.ID,
			EventType:     events.ReceivingApproved,
			Payload:       rec,
		})
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterApprove(ctx, rec); err != nil {
		logger.Warn(ctx, "after-approve hook failed", "error", err)
	}

	logger.Info(ctx, "receiving approved",
		"id", rec.ID,
		"number", rec.Number,
		"lines", len(rec.Lines),
		"total_cost", rec.TotalCost.StringFixed(types.MoneyPlaces))

	return rec, nil
}

// GetByID retrieves a record with lines.
func (s *Service) GetByID(ctx context.Context, recordID id.ID) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	rec.Lines = lines

	return rec, nil
}

// List retrieves records with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Record], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}
