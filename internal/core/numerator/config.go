// Package numerator defines document numbering: SL-2026-00042 and the like.
package numerator

// Strategy selects how counter values are handed out.
type Strategy int

const (
	// StrategyStrict takes every value from the stored counter inside the
	// caller's transaction, so numbers have no gaps.
	StrategyStrict Strategy = iota

	// StrategyCached hands out values from a block reserved up front.
	// Values of an unused block are lost on restart.
	StrategyCached
)

// defaultRangeSize is the block size reserved by StrategyCached.
const defaultRangeSize int64 = 50

type Options struct {
	Strategy  Strategy
	RangeSize int64
}

func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// BlockSize returns RangeSize, or the default when unset.
func (o *Options) BlockSize() int64 {
	if o == nil || o.RangeSize <= 0 {
		return defaultRangeSize
	}
	return o.RangeSize
}

// Reset is the period after which a counter starts again from 1.
type Reset string

const (
	ResetYearly  Reset = "year"
	ResetMonthly Reset = "month"
	ResetNever   Reset = "never"
)

// Config describes the number format of one document type.
type Config struct {
	Prefix      string
	IncludeYear bool
	PadWidth    int
	Reset       Reset
}

// DefaultConfig numbers as PREFIX-YYYY-NNNNN with a yearly reset.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		Reset:       ResetYearly,
	}
}
