package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sigfarma/internal/core/entity"
	"sigfarma/internal/core/id"
	"sigfarma/internal/core/types"
)

type mockDocument struct {
	entity.Document
	Total types.Money `db:"total"`
	Lines []mockLine  `db:"-"`
}

type mockLine struct {
	LineID   id.ID          `db:"line_id"`
	Quantity types.Quantity `db:"quantity"`
	Note     string
}

func TestExtractDBColumns_FlattensEmbedded(t *testing.T) {
	cols := ExtractDBColumns[mockDocument]()

	assert.Equal(t, []string{
		"id", "version", "created_at", "updated_at", "created_by", "updated_by",
		"number", "date", "comment", "total",
	}, cols)
	assert.Equal(t, []string{"line_id", "quantity"}, ExtractDBColumns[mockLine]())
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	doc := mockDocument{Total: types.MustMoney("12.50")}
	doc.ID = id.New()
	doc.Version = 3
	doc.Number = "SL-2026-00007"
	doc.Date = now

	m := StructToMap(&doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, 3, m["version"])
	assert.Equal(t, "SL-2026-00007", m["number"])
	assert.Equal(t, now, m["date"])
	assert.Equal(t, doc.Total, m["total"])
	assert.NotContains(t, m, "lines")
	assert.Len(t, m, 10)
}

func TestStructValues_MatchColumnOrder(t *testing.T) {
	line := mockLine{LineID: id.New(), Quantity: types.NewQuantity(2), Note: "ignored"}

	vals := StructValues(line)

	assert.Equal(t, []any{line.LineID, line.Quantity}, vals)
	assert.Len(t, vals, len(ExtractDBColumns[mockLine]()))
}
