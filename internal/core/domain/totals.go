package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Totals are the monetary sums of a set of priced line items.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// numericLimit is the scale and number of integer digits a stored decimal
// column can hold.
type numericLimit struct {
	scale  int32
	digits int32
}

var (
	quantityLimit  = numericLimit{scale: 3, digits: 11}
	unitPriceLimit = numericLimit{scale: 4, digits: 10}
	amountLimit    = numericLimit{scale: 2, digits: 12}
	taxRateLimit   = numericLimit{scale: 4, digits: 2}
)

// fits reports whether d is stored without rounding or overflow.
func (l numericLimit) fits(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(l.scale)) && d.Abs().LessThan(decimal.New(1, l.digits))
}

// Validate checks the caller-supplied fields of a line item.
func (li LineItem) Validate() error {
	switch {
	case !quantityLimit.fits(li.Quantity):
		return fmt.Errorf("%w: line %d: quantity allows at most %d decimals and %d integer digits",
			ErrInvalidOrder, li.Position, quantityLimit.scale, quantityLimit.digits)
	case !unitPriceLimit.fits(li.UnitPrice):
		return fmt.Errorf("%w: line %d: unit price allows at most %d decimals and %d integer digits",
			ErrInvalidOrder, li.Position, unitPriceLimit.scale, unitPriceLimit.digits)
	case !amountLimit.fits(li.Discount):
		return fmt.Errorf("%w: line %d: discount allows at most %d decimals and %d integer digits",
			ErrInvalidOrder, li.Position, amountLimit.scale, amountLimit.digits)
	case !taxRateLimit.fits(li.TaxRate):
		return fmt.Errorf("%w: line %d: tax rate allows at most %d decimals and %d integer digits",
			ErrInvalidOrder, li.Position, taxRateLimit.scale, taxRateLimit.digits)
	}

	switch {
	case li.SKU == "":
		return fmt.Errorf("%w: line %d: sku is required", ErrInvalidOrder, li.Position)
	case !li.Quantity.IsPositive():
		return fmt.Errorf("%w: line %d: quantity must be positive", ErrInvalidOrder, li.Position)
	case li.UnitPrice.IsNegative():
		return fmt.Errorf("%w: line %d: unit price must not be negative", ErrInvalidOrder, li.Position)
	case li.Discount.IsNegative():
		return fmt.Errorf("%w: line %d: discount must not be negative", ErrInvalidOrder, li.Position)
	case li.Discount.GreaterThan(li.Quantity.Mul(li.UnitPrice)):
		return fmt.Errorf("%w: line %d: discount exceeds line amount", ErrInvalidOrder, li.Position)
	case li.TaxRate.IsNegative():
		return fmt.Errorf("%w: line %d: tax rate must not be negative", ErrInvalidOrder, li.Position)
	}
	return nil
}

// Price fills the computed amounts of a line item. Amounts are rounded to cents.
func (li LineItem) Price() LineItem {
	li.Subtotal = li.Quantity.Mul(li.UnitPrice).Sub(li.Discount).Round(2)
	li.Tax = li.Subtotal.Mul(li.TaxRate).Round(2)
	li.Total = li.Subtotal.Add(li.Tax)
	return li
}

// SumLines adds up already priced line items.
func SumLines(items []LineItem) Totals {
	t := Totals{Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	for _, li := range items {
		t.Subtotal = t.Subtotal.Add(li.Subtotal)
		t.Tax = t.Tax.Add(li.Tax)
		t.Total = t.Total.Add(li.Total)
	}
	return t
}

// Validate checks that the sums fit the stored amount columns.
func (t Totals) Validate() error {
	for _, d := range []decimal.Decimal{t.Subtotal, t.Tax, t.Total} {
		if !amountLimit.fits(d) {
			return fmt.Errorf("%w: order total exceeds %d integer digits", ErrInvalidOrder, amountLimit.digits)
		}
	}
	return nil
}

var totalsTolerance = decimal.New(1, -2)

// Matches reports whether other agrees with t within one cent on every field.
func (t Totals) Matches(other Totals) bool {
	return t.Subtotal.Sub(other.Subtotal).Abs().LessThanOrEqual(totalsTolerance) &&
		t.Tax.Sub(other.Tax).Abs().LessThanOrEqual(totalsTolerance) &&
		t.Total.Sub(other.Total).Abs().LessThanOrEqual(totalsTolerance)
}
