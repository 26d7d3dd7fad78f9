// Package domain holds types shared by the document services: list
// filtering, paging and lifecycle hooks.
package domain

import "time"

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListFilter is the common part of every document list query.
// DateFrom and DateTo are inclusive bounds on the document date.
type ListFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	// OrderBy is date, number or created_at; a leading "-" sorts descending.
	OrderBy string
	Limit   int
	Offset  int
}

// DefaultListFilter lists the newest documents first.
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: defaultListLimit, OrderBy: "-date"}
}

// Normalize replaces out-of-range paging and an empty order with defaults.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = defaultListLimit
	}
	f.Offset = max(f.Offset, 0)
	if f.OrderBy == "" {
		f.OrderBy = "-date"
	}
}

// ListResult is one page of a list query.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
