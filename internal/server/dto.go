package server

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/katikolakarthik/manvi/internal/apperr"
	"github.com/katikolakarthik/manvi/internal/domain"
	"github.com/katikolakarthik/manvi/internal/service"
)

type createOrderRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" binding:"omitempty,len=3,alpha"`
	Receipt  string          `json:"receipt" binding:"max=40"`
	Notes    map[string]any  `json:"notes"`
}

type itemRequest struct {
	Product  string `json:"product" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

func toItemInputs(items []itemRequest) []service.ItemInput {
	out := make([]service.ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, service.ItemInput{ProductID: uuid.MustParse(it.Product), Quantity: it.Quantity})
	}
	return out
}

// settleRequest accepts the provider's checkout field names as well as the
// neutral ones.
type settleRequest struct {
	ProviderOrderID   string `json:"providerOrderId"`
	ProviderPaymentID string `json:"providerPaymentId"`
	ProviderSignature string `json:"providerSignature"`

	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`

	Amount          decimal.Decimal `json:"amount"`
	OrderID         string          `json:"orderId"`
	Description     string          `json:"description" binding:"max=255"`
	Items           []itemRequest   `json:"items" binding:"omitempty,dive"`
	ShippingAddress *domain.Address `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod" binding:"max=40"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r settleRequest) input() service.SettleInput {
	return service.SettleInput{
		ProviderOrderID:   firstNonEmpty(r.ProviderOrderID, r.RazorpayOrderID),
		ProviderPaymentID: firstNonEmpty(r.ProviderPaymentID, r.RazorpayPaymentID),
		ProviderSignature: firstNonEmpty(r.ProviderSignature, r.RazorpaySignature),
		Amount:            r.Amount,
		OrderID:           r.OrderID,
		Description:       r.Description,
		Items:             toItemInputs(r.Items),
		ShippingAddress:   r.ShippingAddress,
		PaymentMethod:     r.PaymentMethod,
	}
}

type refundRequest struct {
	PaymentID string          `json:"paymentId" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason" binding:"max=255"`
}

type placeOrderRequest struct {
	Items           []itemRequest   `json:"orderItems" binding:"required,min=1,dive"`
	ShippingAddress *domain.Address `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod" binding:"max=40"`
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled refunded"`
}

type paymentSummary struct {
	ID                uuid.UUID            `json:"id"`
	RazorpayPaymentID string               `json:"razorpayPaymentId"`
	Amount            decimal.Decimal      `json:"amount"`
	Status            domain.PaymentStatus `json:"status"`
	OrderID           uuid.UUID            `json:"orderId"`
}

type refundSummary struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

// bindJSON decodes the body into dst. An empty body leaves dst zeroed so the
// service reports the missing fields.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(dst)
	}
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return apperr.Wrap(apperr.Validation, fieldMessage(ve[0]), err)
	}
	return apperr.Wrap(apperr.Validation, "Invalid request body", err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
