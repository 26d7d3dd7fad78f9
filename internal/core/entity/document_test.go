package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"sigfarma/internal/core/apperror"
	appctx "sigfarma/internal/core/context"
)

func TestDocument_Attribute(t *testing.T) {
	doc := NewDocument()
	assert.Equal(t, 1, doc.Version)

	doc.Attribute(context.Background())
	assert.Equal(t, "system", doc.CreatedBy)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "pharmacist-2"})
	doc.Attribute(ctx)
	assert.Equal(t, "system", doc.CreatedBy)
	assert.Equal(t, "pharmacist-2", doc.UpdatedBy)
}

func TestDocument_Touch(t *testing.T) {
	doc := NewDocument()
	created := doc.UpdatedAt

	doc.Touch()
	assert.Equal(t, 2, doc.Version)
	assert.False(t, doc.UpdatedAt.Before(created))
}

func TestDocument_Validate(t *testing.T) {
	doc := NewDocument()
	assert.NoError(t, doc.Validate(context.Background()))

	var empty Document
	assert.True(t, apperror.HasCode(empty.Validate(context.Background()), apperror.CodeValidation))
}
