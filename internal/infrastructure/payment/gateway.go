package payment

import (
	"context"
	"fmt"
)

// ProviderOrder is the provider's order object, passed through untouched.
type ProviderOrder map[string]any

// ID returns the provider-assigned order id.
func (o ProviderOrder) ID() string {
	id, _ := o["id"].(string)
	return id
}

type CreateOrderRequest struct {
	AmountMinor int64 // smallest currency unit
	Currency    string
	Receipt     string
	Notes       map[string]any
}

type RefundRequest struct {
	ProviderPaymentID string
	AmountMinor       int64
	Reason            string
}

type ProviderRefund struct {
	ID          string
	AmountMinor int64
	Raw         map[string]any
}

// Gateway is the external payment processor. Implementations must not retry;
// callers decide.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (ProviderOrder, error)
	FetchOrder(ctx context.Context, providerOrderID string) (ProviderOrder, error)
	Refund(ctx context.Context, req RefundRequest) (ProviderRefund, error)
}

// ErrProviderOrderNotFound is returned by FetchOrder for unknown ids.
type ErrProviderOrderNotFound struct {
	ID string
}

func (e *ErrProviderOrderNotFound) Error() string {
	return fmt.Sprintf("provider order %s not found", e.ID)
}
