// Package dto holds the request bodies of the ledger API and their mapping to documents.
package dto

import (
	"time"

	"sigfarma/internal/core/apperror"
	"sigfarma/internal/core/id"
	"sigfarma/internal/domain"
)

// DateLayout is the wire format of calendar dates (expiry, receiving date).
const DateLayout = "2006-01-02"

// ListQuery holds the pagination and date filters shared by document lists.
type ListQuery struct {
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
	OrderBy  string `form:"orderBy"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query. A date-only dateTo covers the whole day.
func (q ListQuery) ToFilter() (domain.ListFilter, error) {
	f := domain.DefaultListFilter()
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset

	var err error
	if f.DateFrom, err = parseOptionalDate("dateFrom", q.DateFrom); err != nil {
		return f, err
	}
	if f.DateTo, err = parseOptionalDate("dateTo", q.DateTo); err != nil {
		return f, err
	}
	if f.DateTo != nil && len(q.DateTo) == len(DateLayout) {
		end := f.DateTo.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.DateTo = &end
	}
	return f, nil
}

// ErrorResponse mirrors the body rendered by the error middleware.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ParseID parses a uuid field, reporting the field name on failure.
func ParseID(field, raw string) (id.ID, error) {
	v, err := id.Parse(raw)
	if err != nil || id.IsNil(v) {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return v, nil
}

// ParseOptionalID parses a uuid field that may be empty.
func ParseOptionalID(field, raw string) (*id.ID, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := ParseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC. RFC 3339 timestamps are accepted too.
func ParseDate(field, raw string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperror.NewValidation("invalid date, expected YYYY-MM-DD").
		WithDetail("field", field).
		WithDetail("value", raw)
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := ParseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
