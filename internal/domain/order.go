package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// GuestUserID marks orders and payments placed without an authenticated user.
const GuestUserID = "guest"

// GuestEmail is recorded as the payer email for guest settlements.
const GuestEmail = "guest@example.com"

type OrderItem struct {
	ProductID uuid.UUID       `json:"product"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// PlaceholderAddress is stored when checkout submits no shipping address.
func PlaceholderAddress() Address {
	return Address{Street: "N/A", City: "N/A", State: "N/A", ZipCode: "N/A", Country: "N/A"}
}

type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type Order struct {
	ID              uuid.UUID       `json:"_id"`
	UserID          string          `json:"user"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress Address         `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice"`
	TaxPrice        decimal.Decimal `json:"taxPrice"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Status          OrderStatus     `json:"status"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ApplyTotals fills the price fields from the line items.
func (o *Order) ApplyTotals() {
	t := ComputeTotals(o.Items)
	o.ItemsPrice = t.Items
	o.TaxPrice = t.Tax
	o.ShippingPrice = t.Shipping
	o.TotalPrice = t.Total
}

// CanTransition reports whether an admin may move the order from its
// current status to next.
func (o *Order) CanTransition(next OrderStatus) bool {
	switch next {
	case OrderProcessing:
		return o.Status == OrderPending
	case OrderShipped:
		return o.Status == OrderProcessing
	case OrderDelivered:
		return o.Status == OrderShipped
	case OrderCancelled:
		return o.Status == OrderPending || o.Status == OrderProcessing
	case OrderRefunded:
		return o.IsPaid && o.Status != OrderRefunded
	}
	return false
}

// UserSummary is the subset of a user embedded in order responses.
type UserSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProductSummary is the subset of a product embedded in order line items.
type ProductSummary struct {
	ID     uuid.UUID `json:"_id"`
	Name   string    `json:"name"`
	Images []string  `json:"images"`
}

type OrderItemDetail struct {
	OrderItem
	Product *ProductSummary `json:"product"`
}

// NewOrderItemDetail pairs a line with its product. The line's product id is
// kept when the product itself can no longer be resolved.
func NewOrderItemDetail(item OrderItem, product *ProductSummary) OrderItemDetail {
	if product == nil {
		product = &ProductSummary{ID: item.ProductID}
	}
	return OrderItemDetail{OrderItem: item, Product: product}
}

// OrderDetail is an order with its user and line-item products resolved.
type OrderDetail struct {
	Order
	User  *UserSummary      `json:"user"`
	Items []OrderItemDetail `json:"orderItems"`
}
