// Package app assembles the ledger services over a storage backend.
// The server, the seeder and the service tests share this wiring.
package app

import (
	"context"
	"fmt"

	"sigfarma/internal/core/numerator"
	"sigfarma/internal/core/tx"
	"sigfarma/internal/domain/audit"
	"sigfarma/internal/domain/catalogs/product"
	"sigfarma/internal/domain/catalogs/supplier"
	"sigfarma/internal/domain/documents/adjustment"
	"sigfarma/internal/domain/documents/receiving"
	"sigfarma/internal/domain/documents/sale"
	"sigfarma/internal/domain/documents/sale_return"
	"sigfarma/internal/domain/events"
	"sigfarma/internal/domain/ledger"
	pgnumerator "sigfarma/internal/infrastructure/numerator"
	"sigfarma/internal/infrastructure/storage/memory"
	"sigfarma/internal/infrastructure/storage/postgres"
	"sigfarma/internal/infrastructure/storage/postgres/catalog_repo"
	"sigfarma/internal/infrastructure/storage/postgres/document_repo"
	"sigfarma/internal/infrastructure/storage/postgres/ledger_repo"
)

// Backend is everything the services need from storage.
type Backend struct {
	TxManager   tx.Manager
	Ledger      ledger.Repository
	Products    product.Repository
	Suppliers   supplier.Repository
	Sales       sale.Repository
	Returns     sale_return.Repository
	Adjustments adjustment.Repository
	Receivings  receiving.Repository
	Numerator   numerator.Generator
	Events      events.Publisher

	// Audit is optional; when set, document creation and approval are recorded.
	Audit    audit.Recorder
	AuditLog audit.Reader
}

// MemoryBackend backs the services with an in-process store.
func MemoryBackend(store *memory.Store) Backend {
	return Backend{
		TxManager:   store,
		Ledger:      store.Ledger(),
		Products:    store.Products(),
		Suppliers:   store.Suppliers(),
		Sales:       store.Sales(),
		Returns:     store.Returns(),
		Adjustments: store.Adjustments(),
		Receivings:  store.Receivings(),
		Numerator:   store,
		Events:      store,
		Audit:       store,
		AuditLog:    store,
	}
}

// PostgresBackend backs the services with PostgreSQL. Events go to the
// outbox and audit entries to sys_audit, both inside the document transaction.
func PostgresBackend(txm *postgres.TxManager) (Backend, error) {
	auditSvc, err := postgres.NewAuditService(txm)
	if err != nil {
		return Backend{}, fmt.Errorf("audit service: %w", err)
	}

	numbers := pgnumerator.NewWithResolver(
		func(ctx context.Context) pgnumerator.Querier { return txm.GetQuerier(ctx) },
		txm.Pool(),
	)

	return Backend{
		TxManager:   txm,
		Ledger:      ledger_repo.NewLedgerRepo(txm),
		Products:    catalog_repo.NewProductRepo(txm),
		Suppliers:   catalog_repo.NewSupplierRepo(txm),
		Sales:       document_repo.NewSaleRepo(txm),
		Returns:     document_repo.NewReturnRepo(txm),
		Adjustments: document_repo.NewAdjustmentRepo(txm),
		Receivings:  document_repo.NewReceivingRepo(txm),
		Numerator:   numbers,
		Events:      postgres.NewOutboxPublisher(txm),
		Audit:       auditSvc,
		AuditLog:    auditSvc,
	}, nil
}

// Services are the ledger and its four transaction processors.
type Services struct {
	Products    *product.Service
	Suppliers   supplier.Repository
	Ledger      *ledger.Service
	Sales       *sale.Service
	Returns     *sale_return.Service
	Adjustments *adjustment.Service
	Receivings  *receiving.Service
	// AuditLog is nil when the backend keeps no audit trail.
	AuditLog audit.Reader
}

// New wires the services.
func New(b Backend, ledgerOpts ...ledger.Option) *Services {
	publisher := b.Events
	if publisher == nil {
		publisher = events.Discard{}
	}

	products := product.NewService(b.Products, b.TxManager)
	ledgerSvc := ledger.NewService(b.Ledger, b.TxManager, ledgerOpts...)
	sales := sale.NewService(b.Sales, ledgerSvc, products, b.Numerator, b.TxManager, publisher)

	svc := &Services{
		Products:    products,
		Suppliers:   b.Suppliers,
		Ledger:      ledgerSvc,
		Sales:       sales,
		Returns:     sale_return.NewService(b.Returns, sales, ledgerSvc, b.Numerator, b.TxManager, publisher),
		Adjustments: adjustment.NewService(b.Adjustments, ledgerSvc, b.Numerator, b.TxManager, publisher),
		Receivings:  receiving.NewService(b.Receivings, ledgerSvc, products, b.Suppliers, b.Numerator, b.TxManager, publisher),
		AuditLog:    b.AuditLog,
	}

	if b.Audit != nil {
		svc.Sales.Hooks().OnAfterCreate(audit.Hook[*sale.Sale](b.Audit, "sale", audit.ActionCreate))
		svc.Returns.Hooks().OnAfterCreate(audit.Hook[*sale_return.Return](b.Audit, "sale_return", audit.ActionCreate))
		svc.Adjustments.Hooks().OnAfterCreate(audit.Hook[*adjustment.Adjustment](b.Audit, "adjustment", audit.ActionCreate))
		svc.Receivings.Hooks().OnAfterCreate(audit.Hook[*receiving.Record](b.Audit, "receiving", audit.ActionCreate))
		svc.Receivings.Hooks().OnAfterApprove(audit.Hook[*receiving.Record](b.Audit, "receiving", audit.ActionApprove))
	}

	return svc
}
