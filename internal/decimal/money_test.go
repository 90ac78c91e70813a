package decimal_test

import (
	"math"
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-generator/internal/decimal"
)

func TestFromFloat(t *testing.T) {
	d, err := decimal.FromFloat(100.5)
	require.NoError(t, err)
	assert.True(t, d.Equal(dec.RequireFromString("100.5")))

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := decimal.FromFloat(v)
		assert.Error(t, err)
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"123456.78", true},
		{"-0.005", true},
		{"1e18", true},
		{"1e-18", true},
		{"9999999999999999999999999999", true},
		{"not-a-number", false},
		{"1e19", false},
		{"1e-19", false},
		{"1e4000000", false},
		{"1e40000000", false},
		{"99999999999999999999999999999", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := decimal.FromString(tt.in)
			if !tt.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, d.Equal(dec.RequireFromString(tt.in)))
		})
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"0.005", "0.01"},
		{"0.004", "0"},
		{"2.675", "2.68"},
		{"-0.005", "-0.01"},
		{"-1.245", "-1.25"},
		{"10", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			result := decimal.Round(dec.RequireFromString(tt.in))
			assert.True(t, result.Equal(dec.RequireFromString(tt.expected)),
				"Round(%s) = %s, expected %s", tt.in, result, tt.expected)
		})
	}
}

func TestMul(t *testing.T) {
	result := decimal.Mul(dec.RequireFromString("3"), dec.RequireFromString("0.335"))
	assert.True(t, result.Equal(dec.RequireFromString("1.01")))
}

func TestCalculatePercentage(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		rate     string
		expected string
	}{
		{"20% of 1000", "1000", "20", "200"},
		{"5.5% of 99.99", "99.99", "5.5", "5.5"},
		{"20% of 0.03 rounds half up", "0.03", "20", "0.01"},
		{"0% of 1000", "1000", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := decimal.CalculatePercentage(dec.RequireFromString(tt.amount), dec.RequireFromString(tt.rate))
			assert.True(t, result.Equal(dec.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, result)
		})
	}
}

func TestSum(t *testing.T) {
	values := []dec.Decimal{
		dec.RequireFromString("0.10"),
		dec.RequireFromString("0.20"),
		dec.RequireFromString("-0.05"),
	}
	assert.True(t, decimal.Sum(values).Equal(dec.RequireFromString("0.25")))
	assert.True(t, decimal.Sum(nil).IsZero())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1200.00 EUR", decimal.FormatAmount(dec.NewFromInt(1200), "EUR"))
	assert.Equal(t, "-3.50", decimal.Fixed(dec.RequireFromString("-3.5")))
	assert.Equal(t, "20%", decimal.FormatRate(dec.RequireFromString("20.00")))
	assert.Equal(t, "5.5%", decimal.FormatRate(dec.RequireFromString("5.5")))
	assert.Equal(t, "0%", decimal.FormatRate(dec.Zero))
	assert.Equal(t, "2.5", decimal.FormatQuantity(dec.RequireFromString("2.50")))
}

func BenchmarkCalculatePercentage(b *testing.B) {
	amount := dec.RequireFromString("12345.67")
	rate := dec.RequireFromString("20")
	for i := 0; i < b.N; i++ {
		decimal.CalculatePercentage(amount, rate)
	}
}
