package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayGateway talks to Razorpay through the official SDK.
type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, secret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, secret)}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req CreateOrderRequest) (ProviderOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return ProviderOrder(body), nil
}

func (g *RazorpayGateway) FetchOrder(ctx context.Context, providerOrderID string) (ProviderOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := g.client.Order.Fetch(providerOrderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch order %s: %w", providerOrderID, err)
	}
	return ProviderOrder(body), nil
}

func (g *RazorpayGateway) Refund(ctx context.Context, req RefundRequest) (ProviderRefund, error) {
	if err := ctx.Err(); err != nil {
		return ProviderRefund{}, err
	}
	data := map[string]interface{}{
		"notes": map[string]interface{}{"reason": req.Reason},
	}
	body, err := g.client.Payment.Refund(req.ProviderPaymentID, int(req.AmountMinor), data, nil)
	if err != nil {
		return ProviderRefund{}, fmt.Errorf("razorpay refund %s: %w", req.ProviderPaymentID, err)
	}
	refund := ProviderRefund{AmountMinor: req.AmountMinor, Raw: body}
	refund.ID, _ = body["id"].(string)
	if amt, ok := body["amount"].(float64); ok {
		refund.AmountMinor = int64(amt)
	}
	return refund, nil
}
