package sale_return

import "sigfarma/internal/core/numerator"

const (
	// NumeratorPrefix prefixes return numbers (RT-2026-00001).
	NumeratorPrefix = "RT"

	// NumeratorStrategy keeps credit notes gapless.
	NumeratorStrategy = numerator.StrategyStrict
)
