package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity counts units with three fractional digits, stored as thousandths
// in a BIGINT so sums and comparisons stay exact.
type Quantity int64

const (
	QuantityScale  int64 = 1_000
	quantityDigits int32 = 3

	// MaxQuantity bounds a single quantity at one billion units. Sums of
	// in-range values still go through Add.
	MaxQuantity = Quantity(1_000_000_000 * QuantityScale)
)

// ErrQuantityOverflow is returned when a sum leaves the int64 range.
var ErrQuantityOverflow = errors.New("quantity overflow")

var (
	maxQuantity = decimal.NewFromInt(int64(MaxQuantity))
	minQuantity = decimal.NewFromInt(-int64(MaxQuantity))
)

// NewQuantity builds a whole-unit quantity.
func NewQuantity(units int64) Quantity { return Quantity(units * QuantityScale) }

// ParseQuantity reads a decimal such as "12.5" or "1e2". Digits past the
// third fractional place are truncated.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	scaled := d.Shift(quantityDigits).Truncate(0)
	if scaled.GreaterThan(maxQuantity) || scaled.LessThan(minQuantity) {
		return 0, fmt.Errorf("quantity %q out of range", s)
	}
	return Quantity(scaled.IntPart()), nil
}

// MustQuantity parses s or panics. For constants and tests.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

// Decimal converts the quantity for money arithmetic.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), -quantityDigits) }

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }
func (q Quantity) Neg() Quantity    { return -q }

// InRange reports whether |q| <= MaxQuantity.
func (q Quantity) InRange() bool { return q >= -MaxQuantity && q <= MaxQuantity }

// Add returns q+o, or ErrQuantityOverflow when the sum does not fit.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	if (o > 0 && q > math.MaxInt64-o) || (o < 0 && q < math.MinInt64-o) {
		return 0, ErrQuantityOverflow
	}
	return q + o, nil
}

// String always prints three fractional digits: "2.500".
func (q Quantity) String() string { return q.Decimal().StringFixed(quantityDigits) }

// MarshalJSON writes a JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts a number or a numeric string; null is zero.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseQuantity(raw)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
