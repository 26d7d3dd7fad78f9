package receiving

import "sigfarma/internal/core/numerator"

const (
	// NumeratorPrefix prefixes receiving record numbers (RCV-2026-00001).
	NumeratorPrefix = "RCV"

	// NumeratorStrategy keeps supplier reception records gapless.
	NumeratorStrategy = numerator.StrategyStrict
)
