// Package entity holds the fields every stored catalog record and document shares.
package entity

import (
	"context"
	"time"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
)

// Validatable checks an entity's own invariants without touching storage.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity is the identity of a row. Version grows by one on every update.
type BaseEntity struct {
	ID      id.ID `db:"id" json:"id"`
	Version int   `db:"version" json:"version"`
}

func newBaseEntity() BaseEntity {
	return BaseEntity{ID: id.New(), Version: 1}
}

// Catalog is reference data: products and suppliers.
// Inactive records stay referenced by past documents.
type Catalog struct {
	BaseEntity

	Code   string `db:"code" json:"code"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

func NewCatalog(code, name string) Catalog {
	return Catalog{BaseEntity: newBaseEntity(), Code: code, Name: name, Active: true}
}

func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}

// Stamp records when and by whom a row was created and last changed.
type Stamp struct {
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}
