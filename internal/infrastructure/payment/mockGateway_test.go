package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGatewayOrders(t *testing.T) {
	ctx := context.Background()
	g := NewMockGateway()

	order, err := g.CreateOrder(ctx, CreateOrderRequest{AmountMinor: 6600, Currency: "INR", Receipt: "receipt_1"})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID())
	assert.Equal(t, int64(6600), order["amount"])
	assert.Equal(t, "created", order["status"])

	fetched, err := g.FetchOrder(ctx, order.ID())
	require.NoError(t, err)
	assert.Equal(t, order.ID(), fetched.ID())

	_, err = g.FetchOrder(ctx, "order_missing")
	var nf *ErrProviderOrderNotFound
	assert.ErrorAs(t, err, &nf)

	_, err = g.CreateOrder(ctx, CreateOrderRequest{AmountMinor: 0, Currency: "INR"})
	assert.Error(t, err)
}

func TestMockGatewayRefund(t *testing.T) {
	ctx := context.Background()
	g := NewMockGateway()

	refund, err := g.Refund(ctx, RefundRequest{ProviderPaymentID: "pay_1", AmountMinor: 6600, Reason: "damaged"})
	require.NoError(t, err)
	assert.NotEmpty(t, refund.ID)
	assert.Equal(t, int64(6600), refund.AmountMinor)
	assert.Len(t, g.Refunds(), 1)
}

func TestMockGatewayFailNext(t *testing.T) {
	ctx := context.Background()
	g := NewMockGateway()
	boom := errors.New("connection timeout")

	g.FailNext(boom)
	_, err := g.Refund(ctx, RefundRequest{ProviderPaymentID: "pay_1", AmountMinor: 100})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, g.Refunds())

	_, err = g.Refund(ctx, RefundRequest{ProviderPaymentID: "pay_1", AmountMinor: 100})
	assert.NoError(t, err)
}
