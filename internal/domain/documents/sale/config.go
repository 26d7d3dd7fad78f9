package sale

import "sigfarma/internal/core/numerator"

const (
	// NumeratorPrefix prefixes sale numbers (SL-2026-00001).
	NumeratorPrefix = "SL"

	// NumeratorStrategy keeps fiscal sale numbers gapless.
	NumeratorStrategy = numerator.StrategyStrict
)

// DefaultTaxPct applies when a line omits its tax rate (Colombian VAT).
var DefaultTaxPct = mustPct("19")
