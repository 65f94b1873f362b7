package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID              uuid.UUID
	Name            string
	Price           decimal.Decimal
	DiscountedPrice decimal.NullDecimal
	Images          []string
	Stock           int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SalePrice is the discounted price when one is set, else the list price.
func (p *Product) SalePrice() decimal.Decimal {
	if p.DiscountedPrice.Valid && p.DiscountedPrice.Decimal.IsPositive() {
		return p.DiscountedPrice.Decimal
	}
	return p.Price
}

// PrimaryImage returns the first image or an empty string.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Snapshot captures the product as an order line at its current price.
func (p *Product) Snapshot(qty int) OrderItem {
	return OrderItem{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  qty,
		Price:     p.SalePrice(),
		Image:     p.PrimaryImage(),
	}
}
