package adjustment

import "sigfarma/internal/core/numerator"

const (
	// NumeratorPrefix prefixes adjustment numbers (ADJ-2026-00001).
	NumeratorPrefix = "ADJ"

	// NumeratorStrategy: adjustments are internal documents, gaps are acceptable.
	NumeratorStrategy = numerator.StrategyCached
)
