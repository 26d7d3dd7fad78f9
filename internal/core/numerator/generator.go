package numerator

import (
	"context"
	"fmt"
	"time"
)

// Generator generates sequential document numbers.
// Implementations live in the infrastructure layer; the Postgres one joins the
// caller's transaction so a rolled back document does not consume a number.
type Generator interface {
	// GetNextNumber generates the next document number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., SL-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the counter value (for data migration).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}

// SequenceKey builds the counter key for a config and period.
func SequenceKey(cfg Config, period time.Time) string {
	switch cfg.Reset {
	case ResetMonthly:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case ResetYearly:
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format renders a counter value as a document number.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}
