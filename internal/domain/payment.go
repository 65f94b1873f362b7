package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Currency is the only currency the storefront charges in.
const Currency = "INR"

// DefaultPaymentMethod labels checkouts that do not name one.
const DefaultPaymentMethod = "razorpay"

type Payment struct {
	ID                uuid.UUID           `json:"_id"`
	UserID            string              `json:"user"`
	OrderID           uuid.UUID           `json:"order"`
	RazorpayOrderID   string              `json:"razorpayOrderId"`
	RazorpayPaymentID string              `json:"razorpayPaymentId"`
	RazorpaySignature string              `json:"razorpaySignature"`
	Amount            decimal.Decimal     `json:"amount"`
	Currency          string              `json:"currency"`
	Status            PaymentStatus       `json:"status"`
	PaymentMethod     string              `json:"paymentMethod"`
	Description       string              `json:"description,omitempty"`
	Receipt           string              `json:"receipt,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	RefundID          string              `json:"refundId,omitempty"`
	RefundAmount      decimal.NullDecimal `json:"refundAmount"`
	RefundReason      string              `json:"refundReason,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// Refundable reports whether the payment may be refunded. Only completed
// payments qualify.
func (p *Payment) Refundable() bool {
	return p.Status == PaymentCompleted
}

// PaymentWithOrder is a ledger row joined with its order.
type PaymentWithOrder struct {
	Payment
	User  *UserSummary `json:"user,omitempty"`
	Order *Order       `json:"order"`
}
