package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katikolakarthik/manvi/internal/apperr"
	"github.com/katikolakarthik/manvi/internal/database"
	"github.com/katikolakarthik/manvi/internal/domain"
	"github.com/katikolakarthik/manvi/internal/testutil"
)

func newOrder(userID string, product domain.Product, qty int) *domain.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	o := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           []domain.OrderItem{product.Snapshot(qty)},
		ShippingAddress: domain.PlaceholderAddress(),
		PaymentMethod:   domain.DefaultPaymentMethod,
		Status:          domain.OrderPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.ApplyTotals()
	return o
}

func insertOrder(t *testing.T, db *sql.DB, o *domain.Order) {
	t.Helper()
	require.NoError(t, database.WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return NewOrderRepo(db).CreateOrder(context.Background(), tx, o)
	}))
}

func newPayment(orderID uuid.UUID, providerPaymentID string) *domain.Payment {
	now := time.Now().UTC()
	return &domain.Payment{
		ID:                uuid.New(),
		UserID:            domain.GuestUserID,
		OrderID:           orderID,
		RazorpayOrderID:   "order_" + providerPaymentID,
		RazorpayPaymentID: providerPaymentID,
		RazorpaySignature: "sig",
		Amount:            decimal.NewFromInt(66),
		Currency:          domain.Currency,
		Status:            domain.PaymentCompleted,
		PaymentMethod:     domain.DefaultPaymentMethod,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestOrderRepo(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	orders := NewOrderRepo(db)

	testutil.SeedUser(t, db, "u-1", "Asha", "asha@example.com", domain.RoleUser)
	product := testutil.SeedProduct(t, db, "kurta", "30", 10)

	t.Run("create and find", func(t *testing.T) {
		o := newOrder("u-1", product, 2)
		insertOrder(t, db, o)

		got, err := orders.FindById(ctx, nil, o.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u-1", got.UserID)
		assert.True(t, got.TotalPrice.Equal(decimal.NewFromInt(66)))
		assert.Equal(t, domain.PlaceholderAddress(), got.ShippingAddress)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "kurta-front.jpg", got.Items[0].Image)
		assert.Nil(t, got.PaymentResult)
		assert.Nil(t, got.PaidAt)

		detail, err := orders.FindDetail(ctx, nil, o.ID)
		require.NoError(t, err)
		require.NotNil(t, detail.User)
		assert.Equal(t, "asha@example.com", detail.User.Email)
		require.Len(t, detail.Items, 1)
		require.NotNil(t, detail.Items[0].Product)
		assert.Equal(t, []string{"kurta-front.jpg", "kurta-back.jpg"}, detail.Items[0].Product.Images)
	})

	t.Run("missing order is nil", func(t *testing.T) {
		got, err := orders.FindById(ctx, nil, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("mark paid only once", func(t *testing.T) {
		o := newOrder(domain.GuestUserID, product, 1)
		insertOrder(t, db, o)

		now := time.Now().UTC()
		o.Status = domain.OrderProcessing
		o.PaidAt = &now
		o.UpdatedAt = now
		o.PaymentResult = &domain.PaymentResult{ID: "pay_1", Status: "completed", EmailAddress: domain.GuestEmail}

		var first, second bool
		require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) (err error) {
			first, err = orders.MarkPaid(ctx, tx, o)
			return err
		}))
		require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) (err error) {
			second, err = orders.MarkPaid(ctx, tx, o)
			return err
		}))
		assert.True(t, first)
		assert.False(t, second)

		got, err := orders.FindById(ctx, nil, o.ID)
		require.NoError(t, err)
		assert.True(t, got.IsPaid)
		assert.Equal(t, domain.OrderProcessing, got.Status)
		require.NotNil(t, got.PaymentResult)
		assert.Equal(t, "pay_1", got.PaymentResult.ID)
	})

	t.Run("status compare and set", func(t *testing.T) {
		o := newOrder(domain.GuestUserID, product, 1)
		insertOrder(t, db, o)

		o.Status = domain.OrderCancelled
		ok, err := orders.UpdateOrderStatus(ctx, nil, o, domain.OrderPending)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = orders.UpdateOrderStatus(ctx, nil, o, domain.OrderPending)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stuck orders", func(t *testing.T) {
		o := newOrder(domain.GuestUserID, product, 1)
		o.CreatedAt = time.Now().Add(-2 * time.Hour)
		o.UpdatedAt = o.CreatedAt
		insertOrder(t, db, o)

		stuck, err := orders.FindStuckOrders(ctx, time.Hour, 100)
		require.NoError(t, err)
		var ids []uuid.UUID
		for _, s := range stuck {
			ids = append(ids, s.ID)
		}
		assert.Contains(t, ids, o.ID)
		for _, s := range stuck {
			if s.ID == o.ID {
				assert.Len(t, s.Items, 1)
			}
		}
	})
}

func TestProductRepoStock(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	products := NewProductRepo(db)
	p := testutil.SeedProduct(t, db, "saree", "20", 3)

	require.NoError(t, products.DecrementStock(ctx, nil, p.ID, 2))
	assert.Equal(t, 1, testutil.Stock(t, db, p.ID))

	err := products.DecrementStock(ctx, nil, p.ID, 2)
	var ise *apperr.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, p.ID.String(), ise.Items[0].ProductID)
	assert.Equal(t, 1, testutil.Stock(t, db, p.ID))

	err = products.DecrementStock(ctx, nil, uuid.New(), 1)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	require.NoError(t, products.RestoreStock(ctx, nil, p.ID, 2))
	assert.Equal(t, 3, testutil.Stock(t, db, p.ID))

	got, err := products.FindById(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "saree", got.Name)
	assert.False(t, got.DiscountedPrice.Valid)
	assert.Equal(t, "saree-front.jpg", got.PrimaryImage())

	created := &domain.Product{
		ID:              uuid.New(),
		Name:            "dupatta",
		Price:           decimal.NewFromInt(15),
		DiscountedPrice: decimal.NewNullDecimal(decimal.NewFromInt(12)),
		Images:          []string{"d.jpg"},
		Stock:           4,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	require.NoError(t, products.CreateProduct(ctx, nil, created))
	got, err = products.FindById(ctx, nil, created.ID)
	require.NoError(t, err)
	assert.True(t, got.SalePrice().Equal(decimal.NewFromInt(12)))
}

func TestPaymentRepo(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	payments := NewPaymentRepo(db)
	product := testutil.SeedProduct(t, db, "lehenga", "30", 10)
	testutil.SeedUser(t, db, "u-2", "Ravi", "ravi@example.com", domain.RoleUser)

	o := newOrder("u-2", product, 2)
	insertOrder(t, db, o)

	p := newPayment(o.ID, "pay_A")
	p.UserID = "u-2"
	require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) error {
		return payments.CreatePayment(ctx, tx, p)
	}))

	t.Run("duplicate provider payment id is a unique violation", func(t *testing.T) {
		dup := newPayment(o.ID, "pay_A")
		err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
			return payments.CreatePayment(ctx, tx, dup)
		})
		require.Error(t, err)
		assert.True(t, database.IsUniqueViolation(err))
	})

	t.Run("second settled payment for the same order is rejected", func(t *testing.T) {
		other := newPayment(o.ID, "pay_B")
		err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
			return payments.CreatePayment(ctx, tx, other)
		})
		assert.True(t, database.IsUniqueViolation(err))
	})

	t.Run("find", func(t *testing.T) {
		got, err := payments.FindByProviderPaymentId(ctx, nil, "pay_A")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, p.ID, got.ID)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(66)))
		assert.False(t, got.RefundAmount.Valid)

		missing, err := payments.FindById(ctx, nil, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, missing)

		_, err = payments.FindByIdForUpdate(ctx, nil, p.ID)
		require.Error(t, err)

		require.NoError(t, database.WithTx(ctx, db, func(tx *sql.Tx) error {
			locked, err := payments.FindByIdForUpdate(ctx, tx, p.ID)
			require.NoError(t, err)
			require.NotNil(t, locked)
			assert.Equal(t, "pay_A", locked.RazorpayPaymentID)
			return nil
		}))
	})

	t.Run("refund only from completed", func(t *testing.T) {
		p.RefundID = "rfnd_1"
		p.RefundAmount = decimal.NewNullDecimal(decimal.NewFromInt(66))
		p.RefundReason = "size issue"
		p.UpdatedAt = time.Now()

		ok, err := payments.MarkRefunded(ctx, nil, p)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = payments.MarkRefunded(ctx, nil, p)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := payments.FindById(ctx, nil, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentRefunded, got.Status)
		assert.Equal(t, "rfnd_1", got.RefundID)
		assert.True(t, got.RefundAmount.Decimal.Equal(decimal.NewFromInt(66)))
	})

	t.Run("list", func(t *testing.T) {
		all, err := payments.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.NotNil(t, all[0].Order)
		assert.Equal(t, o.ID, all[0].Order.ID)
		require.NotNil(t, all[0].User)
		assert.Equal(t, "Ravi", all[0].User.Name)

		mine, err := payments.List(ctx, "u-2")
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		none, err := payments.List(ctx, "someone-else")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
