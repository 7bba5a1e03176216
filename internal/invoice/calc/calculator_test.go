package calc

import (
	"testing"

	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func dp(value string) *decimal.Decimal {
	parsed := d(value)
	return &parsed
}

func assertMoney(t *testing.T, expected string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(expected)), "expected %s, got %s", expected, got.String())
}

func TestComputeTotalsItemTaxOnly(t *testing.T) {
	// Item-level tax rates feed line totals only; the invoice tax comes
	// from the invoice-level rate.
	totals, err := ComputeTotals(Input{
		Items: []Item{
			{Quantity: d("2"), UnitPrice: d("100"), TaxRate: d("10")},
		},
	})
	require.NoError(t, err)

	assertMoney(t, "200", totals.Subtotal)
	assertMoney(t, "0", totals.TaxAmount)
	assertMoney(t, "200", totals.Total)
	assertMoney(t, "200", totals.Balance)

	require.Len(t, totals.Items, 1)
	assertMoney(t, "200", totals.Items[0].LineSubtotal)
	assertMoney(t, "20", totals.Items[0].LineTax)
	assertMoney(t, "220", totals.Items[0].LineTotal)
}

func TestComputeTotalsPercentageDiscountAndTax(t *testing.T) {
	totals, err := ComputeTotals(Input{
		Items: []Item{
			{Quantity: d("1"), UnitPrice: d("1000")},
		},
		DiscountType:  invoicedomain.DiscountPercentage,
		DiscountValue: d("10"),
		TaxRate:       d("7.5"),
	})
	require.NoError(t, err)

	assertMoney(t, "1000", totals.Subtotal)
	assertMoney(t, "100", totals.DiscountAmount)
	assertMoney(t, "67.50", totals.TaxAmount)
	assertMoney(t, "967.50", totals.Total)
	assertMoney(t, "967.50", totals.Balance)
}

func TestComputeTotalsItemDiscountKeepsGrossSubtotal(t *testing.T) {
	// Item discounts reduce line tax but the displayed subtotal stays
	// gross.
	totals, err := ComputeTotals(Input{
		Items: []Item{
			{
				Quantity:      d("1"),
				UnitPrice:     d("100"),
				DiscountType:  invoicedomain.DiscountFixed,
				DiscountValue: d("40"),
				TaxRate:       d("10"),
			},
		},
	})
	require.NoError(t, err)

	assertMoney(t, "100", totals.Subtotal)
	assertMoney(t, "60", totals.Items[0].LineSubtotal)
	assertMoney(t, "6", totals.Items[0].LineTax)
	assertMoney(t, "66", totals.Items[0].LineTotal)
}

func TestComputeTotalsItemDiscountClampsAtZero(t *testing.T) {
	totals, err := ComputeTotals(Input{
		Items: []Item{
			{
				Quantity:      d("1"),
				UnitPrice:     d("50"),
				DiscountType:  invoicedomain.DiscountFixed,
				DiscountValue: d("80"),
				TaxRate:       d("10"),
			},
		},
	})
	require.NoError(t, err)

	assertMoney(t, "50", totals.Subtotal)
	assertMoney(t, "0", totals.Items[0].LineSubtotal)
	assertMoney(t, "0", totals.Items[0].LineTax)
}

func TestComputeTotalsTaxOverride(t *testing.T) {
	totals, err := ComputeTotals(Input{
		Items: []Item{
			{Quantity: d("1"), UnitPrice: d("1000")},
		},
		TaxRate:           d("7.5"),
		TaxAmountOverride: dp("12.34"),
		IsTaxOverridden:   true,
	})
	require.NoError(t, err)

	// Override is stored verbatim, not recomputed from the rate.
	assertMoney(t, "12.34", totals.TaxAmount)
	assertMoney(t, "1012.34", totals.Total)
}

func TestComputeTotalsOverrideIgnoredWithoutFlag(t *testing.T) {
	totals, err := ComputeTotals(Input{
		Items: []Item{
			{Quantity: d("1"), UnitPrice: d("1000")},
		},
		TaxRate:           d("7.5"),
		TaxAmountOverride: dp("12.34"),
	})
	require.NoError(t, err)

	assertMoney(t, "75", totals.TaxAmount)
}

func TestComputeTotalsShippingAndBalance(t *testing.T) {
	totals, err := ComputeTotals(Input{
		Items: []Item{
			{Quantity: d("3"), UnitPrice: d("19.99")},
		},
		Shipping:   d("5.01"),
		AmountPaid: d("20"),
	})
	require.NoError(t, err)

	assertMoney(t, "59.97", totals.Subtotal)
	assertMoney(t, "64.98", totals.Total)
	assertMoney(t, "44.98", totals.Balance)
}

func TestComputeTotalsOverpaidBalanceClampsAtZero(t *testing.T) {
	totals, err := ComputeTotals(Input{
		Items: []Item{
			{Quantity: d("1"), UnitPrice: d("100")},
		},
		AmountPaid: d("150"),
	})
	require.NoError(t, err)

	assertMoney(t, "0", totals.Balance)
}

func TestComputeTotalsValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{
			name:  "no items",
			in:    Input{},
			field: "items",
		},
		{
			name: "zero quantity",
			in: Input{Items: []Item{
				{Quantity: d("0"), UnitPrice: d("10")},
			}},
			field: "items[0].quantity",
		},
		{
			name: "negative unit price",
			in: Input{Items: []Item{
				{Quantity: d("1"), UnitPrice: d("-1")},
			}},
			field: "items[0].unit_price",
		},
		{
			name: "negative tax rate on second item",
			in: Input{Items: []Item{
				{Quantity: d("1"), UnitPrice: d("10")},
				{Quantity: d("1"), UnitPrice: d("10"), TaxRate: d("-5")},
			}},
			field: "items[1].tax_rate",
		},
		{
			name: "negative total",
			in: Input{
				Items: []Item{
					{Quantity: d("1"), UnitPrice: d("100")},
				},
				DiscountType:      invoicedomain.DiscountFixed,
				DiscountValue:     d("150"),
				TaxAmountOverride: dp("0"),
				IsTaxOverridden:   true,
			},
			field: "total",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeTotals(tt.in)
			require.Error(t, err)

			var vErr *validation.Errors
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Errors, 1)
			assert.Equal(t, tt.field, vErr.Errors[0].Field)
		})
	}
}

func TestComputeTotalsDeterministic(t *testing.T) {
	in := Input{
		Items: []Item{
			{Quantity: d("7"), UnitPrice: d("3.33"), TaxRate: d("7.5")},
			{Quantity: d("2"), UnitPrice: d("19.995"), DiscountType: invoicedomain.DiscountPercentage, DiscountValue: d("12.5")},
		},
		DiscountType:  invoicedomain.DiscountPercentage,
		DiscountValue: d("3"),
		TaxRate:       d("7.5"),
		Shipping:      d("9.99"),
		AmountPaid:    d("10"),
	}

	first, err := ComputeTotals(in)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := ComputeTotals(in)
		require.NoError(t, err)
		assert.True(t, first.Total.Equal(again.Total))
		assert.True(t, first.Balance.Equal(again.Balance))
		assert.True(t, first.TaxAmount.Equal(again.TaxAmount))
	}
}

func TestComputeTotalsRoundsHalfUp(t *testing.T) {
	totals, err := ComputeTotals(Input{
		Items: []Item{
			{Quantity: d("1"), UnitPrice: d("0.125")},
		},
	})
	require.NoError(t, err)

	assertMoney(t, "0.13", totals.Subtotal)
}
