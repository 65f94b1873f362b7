package domain

import "github.com/shopspring/decimal"

var (
	taxRate               = decimal.RequireFromString("0.1")
	freeShippingThreshold = decimal.NewFromInt(50)
	flatShippingFee       = decimal.NewFromInt(10)
)

type Totals struct {
	Items    decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals prices a cart: 10% tax on the items, free shipping strictly
// above 50, otherwise a flat 10. Total is the exact sum of the three.
func ComputeTotals(items []OrderItem) Totals {
	itemsPrice := decimal.Zero
	for _, it := range items {
		itemsPrice = itemsPrice.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	tax := itemsPrice.Mul(taxRate)
	shipping := flatShippingFee
	if itemsPrice.GreaterThan(freeShippingThreshold) {
		shipping = decimal.Zero
	}
	return Totals{
		Items:    itemsPrice,
		Tax:      tax,
		Shipping: shipping,
		Total:    itemsPrice.Add(tax).Add(shipping),
	}
}

// ToMinorUnits converts a display amount into the provider's smallest unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
