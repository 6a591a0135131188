package models

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Magnitude bounds for decimals taken from requests and feeds. shopspring/decimal
// rescales both operands to the smaller exponent before comparing or adding, so
// a literal such as 1e50000000 expands into a fifty-million-digit integer.
const (
	MaxIntegerDigits  = 15
	MaxFractionDigits = 28

	maxCoefficientBits = 144 // enough for MaxIntegerDigits+MaxFractionDigits digits
)

// WithinDecimalBounds reports whether d has at most MaxIntegerDigits digits
// before the point and at most MaxFractionDigits after it. It inspects only the
// exponent and the coefficient size.
func WithinDecimalBounds(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < -MaxFractionDigits || exp > MaxIntegerDigits {
		return false
	}
	if d.Coefficient().BitLen() > maxCoefficientBits {
		return false
	}
	return int64(d.NumDigits())+exp <= MaxIntegerDigits
}

// BoundedString renders d for messages without expanding its exponent.
func BoundedString(d decimal.Decimal) string {
	if WithinDecimalBounds(d) {
		return d.String()
	}
	coefficient := d.Coefficient()
	if coefficient.BitLen() > maxCoefficientBits {
		return fmt.Sprintf("a %d-bit coefficient with exponent %d", coefficient.BitLen(), d.Exponent())
	}
	return coefficient.String() + "e" + strconv.FormatInt(int64(d.Exponent()), 10)
}
