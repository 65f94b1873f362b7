package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MockGateway is an in-memory provider. It keeps the orders and refunds it
// has issued so FetchOrder and Refund behave like the real service.
type MockGateway struct {
	mu      sync.RWMutex
	orders  map[string]ProviderOrder
	refunds map[string]ProviderRefund

	// FailNext makes the next call return this error, then resets.
	failNext error
}

var _ Gateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{
		orders:  make(map[string]ProviderOrder),
		refunds: make(map[string]ProviderRefund),
	}
}

// FailNext arms a one-shot failure for the next gateway call.
func (g *MockGateway) FailNext(err error) {
	g.mu.Lock()
	g.failNext = err
	g.mu.Unlock()
}

func (g *MockGateway) takeFailure() error {
	err := g.failNext
	g.failNext = nil
	return err
}

func (g *MockGateway) CreateOrder(ctx context.Context, req CreateOrderRequest) (ProviderOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	if req.AmountMinor <= 0 {
		return nil, errors.New("amount must be at least 100")
	}

	notes := req.Notes
	if notes == nil {
		notes = map[string]any{}
	}
	order := ProviderOrder{
		"id":          "order_" + randomID(),
		"entity":      "order",
		"amount":      req.AmountMinor,
		"amount_paid": int64(0),
		"amount_due":  req.AmountMinor,
		"currency":    req.Currency,
		"receipt":     req.Receipt,
		"status":      "created",
		"attempts":    0,
		"notes":       notes,
		"created_at":  time.Now().Unix(),
	}
	g.orders[order.ID()] = order
	return order, nil
}

func (g *MockGateway) FetchOrder(ctx context.Context, providerOrderID string) (ProviderOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	order, ok := g.orders[providerOrderID]
	if !ok {
		return nil, &ErrProviderOrderNotFound{ID: providerOrderID}
	}
	return order, nil
}

func (g *MockGateway) Refund(ctx context.Context, req RefundRequest) (ProviderRefund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return ProviderRefund{}, err
	}
	if req.AmountMinor <= 0 {
		return ProviderRefund{}, fmt.Errorf("invalid refund amount %d", req.AmountMinor)
	}

	refund := ProviderRefund{
		ID:          "rfnd_" + randomID(),
		AmountMinor: req.AmountMinor,
	}
	refund.Raw = map[string]any{
		"id":         refund.ID,
		"entity":     "refund",
		"amount":     req.AmountMinor,
		"payment_id": req.ProviderPaymentID,
		"notes":      map[string]any{"reason": req.Reason},
		"status":     "processed",
	}
	g.refunds[refund.ID] = refund
	return refund, nil
}

// Refunds returns the refunds issued so far.
func (g *MockGateway) Refunds() []ProviderRefund {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ProviderRefund, 0, len(g.refunds))
	for _, r := range g.refunds {
		out = append(out, r)
	}
	return out
}

func randomID() string {
	b := make([]byte, 7)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
