// Package calc computes invoice totals. ComputeTotals is pure: same
// input, same output, no storage access.
package calc

import (
	"fmt"

	invoicedomain "github.com/billora/billora/internal/invoice/domain"
	"github.com/billora/billora/internal/money"
	"github.com/billora/billora/pkg/validation"
	"github.com/shopspring/decimal"
)

type Item struct {
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	DiscountType  invoicedomain.DiscountType
	DiscountValue decimal.Decimal
	TaxRate       decimal.Decimal
}

type Input struct {
	Items []Item

	DiscountType  invoicedomain.DiscountType
	DiscountValue decimal.Decimal

	// TaxRate is a percentage. When IsTaxOverridden is true and
	// TaxAmountOverride is set, the override is stored verbatim and the
	// rate is ignored.
	TaxRate           decimal.Decimal
	TaxAmountOverride *decimal.Decimal
	IsTaxOverridden   bool

	Shipping   decimal.Decimal
	AmountPaid decimal.Decimal
}

type ItemTotals struct {
	LineSubtotal decimal.Decimal
	LineTax      decimal.Decimal
	LineTotal    decimal.Decimal
}

type Totals struct {
	Items []ItemTotals

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TaxRate        decimal.Decimal
	Shipping       decimal.Decimal
	Total          decimal.Decimal
	AmountPaid     decimal.Decimal
	Balance        decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// ComputeTotals derives every money field of an invoice from its items
// and adjustments. Each stored value is rounded exactly once.
//
// Subtotal is the gross of unitPrice×quantity before item discounts;
// item discounts reduce the taxable line amount but not the displayed
// subtotal. The invoice-level discount then applies against that gross
// subtotal.
func ComputeTotals(in Input) (Totals, error) {
	if len(in.Items) == 0 {
		return Totals{}, validation.New("items", "required", "at least one item is required")
	}

	itemTotals := make([]ItemTotals, 0, len(in.Items))
	gross := decimal.Zero

	for i, item := range in.Items {
		if item.Quantity.Sign() <= 0 {
			return Totals{}, validation.New(
				fmt.Sprintf("items[%d].quantity", i), "invalid", "quantity must be greater than zero")
		}
		if item.UnitPrice.IsNegative() {
			return Totals{}, validation.New(
				fmt.Sprintf("items[%d].unit_price", i), "invalid", "unit price cannot be negative")
		}
		if item.DiscountValue.IsNegative() {
			return Totals{}, validation.New(
				fmt.Sprintf("items[%d].discount_value", i), "invalid", "discount cannot be negative")
		}
		if item.TaxRate.IsNegative() {
			return Totals{}, validation.New(
				fmt.Sprintf("items[%d].tax_rate", i), "invalid", "tax rate cannot be negative")
		}

		lineGross := item.UnitPrice.Mul(item.Quantity)
		gross = gross.Add(lineGross)

		lineSubtotal := lineGross.Sub(discountAmount(lineGross, item.DiscountType, item.DiscountValue))
		lineSubtotal = money.MaxZero(lineSubtotal)

		lineTax := money.Round2(lineSubtotal.Mul(item.TaxRate).Div(oneHundred))
		itemTotals = append(itemTotals, ItemTotals{
			LineSubtotal: money.Round2(lineSubtotal),
			LineTax:      lineTax,
			LineTotal:    money.Round2(lineSubtotal.Add(lineTax)),
		})
	}

	subtotal := money.Round2(gross)

	if in.DiscountValue.IsNegative() {
		return Totals{}, validation.New("discount_value", "invalid", "discount cannot be negative")
	}
	discount := money.Round2(discountAmount(subtotal, in.DiscountType, in.DiscountValue))

	taxable := money.MaxZero(subtotal.Sub(discount))

	var taxAmount decimal.Decimal
	if in.IsTaxOverridden && in.TaxAmountOverride != nil {
		taxAmount = money.Round2(*in.TaxAmountOverride)
	} else {
		taxAmount = money.Round2(taxable.Mul(in.TaxRate).Div(oneHundred))
	}

	shipping := money.Round2(in.Shipping)
	total := money.Round2(subtotal.Sub(discount).Add(taxAmount).Add(shipping))
	if total.IsNegative() {
		return Totals{}, validation.New("total", "negative_total", "invoice total cannot be negative")
	}

	amountPaid := money.Round2(in.AmountPaid)
	balance := money.Round2(money.MaxZero(total.Sub(amountPaid)))

	return Totals{
		Items:          itemTotals,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      taxAmount,
		TaxRate:        in.TaxRate,
		Shipping:       shipping,
		Total:          total,
		AmountPaid:     amountPaid,
		Balance:        balance,
	}, nil
}

func discountAmount(base decimal.Decimal, discountType invoicedomain.DiscountType, value decimal.Decimal) decimal.Decimal {
	if value.Sign() <= 0 {
		return decimal.Zero
	}
	if discountType == invoicedomain.DiscountPercentage {
		return base.Mul(value).Div(oneHundred)
	}
	return value
}
