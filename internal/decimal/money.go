package decimal

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for monetary amounts
const Scale = 2

// Zero is decimal zero
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// Bounds on parsed amounts. Anything larger cannot be a monetary value and
// would make arithmetic on it unbounded.
const (
	MaxDigits   = 28
	MaxExponent = 18
)

// FromFloat creates decimal from float, rejecting NaN and infinities
func FromFloat(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Zero, fmt.Errorf("not a finite number: %v", v)
	}
	return decimal.NewFromFloat(v), nil
}

// FromString parses decimal from string, rejecting values outside
// MaxDigits and MaxExponent
func FromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, err
	}
	if exp := d.Exponent(); exp > MaxExponent || exp < -MaxExponent {
		return Zero, fmt.Errorf("exponent %d out of range", exp)
	}
	if n := d.NumDigits(); n > MaxDigits {
		return Zero, fmt.Errorf("%d digits exceed %d", n, MaxDigits)
	}
	return d, nil
}

// Round rounds half away from zero to 2 places
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Mul multiplies two decimals, rounds to 2 places
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.Mul(b))
}

// CalculatePercentage computes: amount * (percentage/100), rounded to 2 places
func CalculatePercentage(amount decimal.Decimal, percentage decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(percentage).Div(hundred))
}

// Sum sums a slice of decimals without intermediate rounding
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// Fixed renders an amount with exactly 2 fractional digits
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// FormatAmount renders an amount followed by its currency code, e.g. "1200.00 EUR"
func FormatAmount(d decimal.Decimal, currency string) string {
	return Fixed(d) + " " + currency
}

// FormatRate renders a percentage without trailing zeros, e.g. "20%" or "5.5%"
func FormatRate(rate decimal.Decimal) string {
	s := rate.StringFixed(Scale)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s + "%"
}

// FormatQuantity renders a quantity without trailing zeros
func FormatQuantity(q decimal.Decimal) string {
	return q.String()
}
