package product

import (
	"context"
	"fmt"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/tx"
	"sigfarma/pkg/logger"
)

// Service answers existence and availability questions for the transaction processors.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a product catalog service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create registers a product. Used by seeding and catalog tooling.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "product created", "id", p.ID, "code", p.Code)
	return nil
}

// Get retrieves a product regardless of its active flag.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// GetActive retrieves a product that can take part in stock operations.
// Inactive products are reported as not found.
func (s *Service) GetActive(ctx context.Context, productID id.ID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperror.NewNotFound("product", productID.String()).
			WithDetail("reason", "inactive")
	}
	return p, nil
}

// LowStock lists products at or below their minimum stock.
func (s *Service) LowStock(ctx context.Context, limit int) ([]*Product, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListLowStock(ctx, limit)
}
