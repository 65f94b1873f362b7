package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func item(price string, qty int) OrderItem {
	return OrderItem{ProductID: uuid.New(), Quantity: qty, Price: decimal.RequireFromString(price)}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name       string
		items      []OrderItem
		itemsPrice string
		tax        string
		shipping   string
		total      string
	}{
		{"free shipping above threshold", []OrderItem{item("30", 2)}, "60", "6", "0", "66"},
		{"flat shipping below threshold", []OrderItem{item("20", 1)}, "20", "2", "10", "32"},
		{"threshold itself pays shipping", []OrderItem{item("25", 2)}, "50", "5", "10", "65"},
		{"fractional prices", []OrderItem{item("19.99", 3), item("0.5", 1)}, "60.47", "6.047", "0", "66.517"},
		{"empty cart", nil, "0", "0", "10", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.items)
			assert.True(t, got.Items.Equal(decimal.RequireFromString(tt.itemsPrice)), "items %s", got.Items)
			assert.True(t, got.Tax.Equal(decimal.RequireFromString(tt.tax)), "tax %s", got.Tax)
			assert.True(t, got.Shipping.Equal(decimal.RequireFromString(tt.shipping)), "shipping %s", got.Shipping)
			assert.True(t, got.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", got.Total)
			assert.True(t, got.Total.Equal(got.Items.Add(got.Tax).Add(got.Shipping)))
		})
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(6600), ToMinorUnits(decimal.NewFromInt(66)))
	assert.Equal(t, int64(6652), ToMinorUnits(decimal.RequireFromString("66.517")))
	assert.True(t, FromMinorUnits(3200).Equal(decimal.NewFromInt(32)))
}

func TestOrderCanTransition(t *testing.T) {
	o := &Order{Status: OrderPending}
	assert.True(t, o.CanTransition(OrderProcessing))
	assert.True(t, o.CanTransition(OrderCancelled))
	assert.False(t, o.CanTransition(OrderShipped))
	assert.False(t, o.CanTransition(OrderRefunded))

	o = &Order{Status: OrderShipped, IsPaid: true}
	assert.True(t, o.CanTransition(OrderDelivered))
	assert.True(t, o.CanTransition(OrderRefunded))
	assert.False(t, o.CanTransition(OrderCancelled))
	assert.False(t, o.CanTransition("bogus"))
}

func TestProductSnapshot(t *testing.T) {
	p := &Product{
		ID:     uuid.New(),
		Name:   "Linen Kurta",
		Price:  decimal.NewFromInt(40),
		Images: []string{"a.jpg", "b.jpg"},
	}
	line := p.Snapshot(2)
	assert.True(t, line.Price.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, "a.jpg", line.Image)

	p.DiscountedPrice = decimal.NewNullDecimal(decimal.NewFromInt(30))
	assert.True(t, p.Snapshot(1).Price.Equal(decimal.NewFromInt(30)))
}

func TestActorDefaults(t *testing.T) {
	var guest *Actor
	assert.Equal(t, GuestUserID, guest.UserID())
	assert.Equal(t, GuestEmail, guest.EmailAddress())
	assert.False(t, guest.IsAdmin())

	a := &Actor{ID: "u1", Email: "a@b.c", Role: RoleAdmin}
	assert.Equal(t, "u1", a.UserID())
	assert.True(t, a.IsAdmin())
}
