package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWithinDecimalBounds(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"0", true},
		{"1.91", true},
		{"-50", true},
		{"999999999999999", true},
		{"0.0000000000000000000000000001", true},
		{"1000000000000000", false},
		{"1e15", false},
		{"1e400", false},
		{"1e50000000", false},
		{"1e2000000000", false},
		{"0.00000000000000000000000000001", false},
		{"1e-50000000", false},
		{"0e50000000", false},
		{"1" + strings.Repeat("0", 60) + "e-50", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinDecimalBounds(decimal.RequireFromString(tt.value)))
		})
	}
}

func TestBoundedString(t *testing.T) {
	assert.Equal(t, "1.91", BoundedString(decimal.RequireFromString("1.91")))
	assert.Equal(t, "1e50000000", BoundedString(decimal.RequireFromString("1e50000000")))
	assert.Equal(t, "15e-2000000001", BoundedString(decimal.RequireFromString("1.5e-2000000000")))

	huge := decimal.RequireFromString(strings.Repeat("9", 200))
	assert.Contains(t, BoundedString(huge), "-bit coefficient with exponent 0")
}
