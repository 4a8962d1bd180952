package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the only currency invoices are billed in.
const DefaultCurrency = "INR"

var (
	hundred    = decimal.NewFromInt(100)
	maxTaxRate = decimal.NewFromInt(100)
)

// LineItem is the priced input to a totals calculation.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Totals are the derived monetary fields of an invoice.
type Totals struct {
	// Amounts holds quantity*unit_price for each line, in input order.
	Amounts   []decimal.Decimal
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// RoundMoney rounds to currency precision, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineAmount returns quantity*unitPrice at currency precision.
func LineAmount(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundMoney(quantity.Mul(unitPrice))
}

// CalculateTotals computes line amounts, subtotal, tax and total for items
// taxed at taxPercentage. Client-supplied totals are never an input.
func CalculateTotals(items []LineItem, taxPercentage decimal.Decimal) Totals {
	t := Totals{
		Amounts:  make([]decimal.Decimal, len(items)),
		Subtotal: decimal.Zero,
	}
	for i, item := range items {
		amount := LineAmount(item.Quantity, item.UnitPrice)
		t.Amounts[i] = amount
		t.Subtotal = t.Subtotal.Add(amount)
	}
	t.Subtotal = RoundMoney(t.Subtotal)
	t.TaxAmount = RoundMoney(t.Subtotal.Mul(taxPercentage).Div(hundred))
	t.Total = t.Subtotal.Add(t.TaxAmount)
	return t
}

// ValidTaxPercentage reports whether p lies in [0, 100].
func ValidTaxPercentage(p decimal.Decimal) bool {
	return !p.IsNegative() && p.LessThanOrEqual(maxTaxRate)
}

// ToMinorUnits converts an amount to the gateway's smallest currency unit (paise).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts a gateway amount back to currency units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// ValidateLineItems checks the shape of line items and returns a
// ValidationError naming the first bad field of each line.
func ValidateLineItems(op string, items []LineItem) error {
	if len(items) == 0 {
		return NewValidationError(op, "items", "at least one line item is required")
	}

	var err error
	for i, item := range items {
		prefix := "items[" + strconv.Itoa(i) + "]"
		switch {
		case item.Description == "":
			err = AddFieldError(err, prefix+".description", "description is required")
		case !item.Quantity.IsPositive():
			err = AddFieldError(err, prefix+".quantity", "quantity must be greater than zero")
		case item.UnitPrice.IsNegative():
			err = AddFieldError(err, prefix+".unit_price", "unit price cannot be negative")
		}
	}
	if ve, ok := err.(*ValidationError); ok {
		ve.Op = op
	}
	return err
}
