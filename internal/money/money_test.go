package money_test

import (
	"testing"

	"github.com/billora/billora/internal/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound2HalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1"},
		{"67.5", "67.5"},
		{"0.125", "0.13"},
		{"10", "10"},
	}

	for _, tc := range cases {
		in := decimal.RequireFromString(tc.in)
		want := decimal.RequireFromString(tc.want)
		assert.True(t, money.Round2(in).Equal(want), "Round2(%s) = %s, want %s", tc.in, money.Round2(in), want)
	}
}

func TestMinorUnitConversionRoundTrips(t *testing.T) {
	amount := decimal.RequireFromString("467.50")
	minor := money.ToMinorUnits(amount)
	assert.Equal(t, int64(46750), minor)
	assert.True(t, money.FromMinorUnits(minor).Equal(amount))
}

func TestMaxZero(t *testing.T) {
	assert.True(t, money.MaxZero(decimal.RequireFromString("-3")).IsZero())
	assert.True(t, money.MaxZero(decimal.RequireFromString("3")).Equal(decimal.RequireFromString("3")))
}
