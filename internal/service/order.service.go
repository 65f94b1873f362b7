package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/katikolakarthik/manvi/internal/apperr"
	"github.com/katikolakarthik/manvi/internal/database"
	"github.com/katikolakarthik/manvi/internal/domain"
	"github.com/katikolakarthik/manvi/internal/repo"
)

type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type PlaceOrderInput struct {
	Items           []ItemInput
	ShippingAddress *domain.Address
	PaymentMethod   string
}

type OrderService interface {
	// PlaceOrder records a pending, unpaid order and reserves its stock.
	PlaceOrder(ctx context.Context, actor *domain.Actor, in PlaceOrderInput) (*domain.OrderDetail, error)
	GetOrder(ctx context.Context, actor *domain.Actor, id string) (*domain.OrderDetail, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.OrderDetail, error)
	// ExpireStaleOrders cancels unpaid pending orders idle for longer than
	// olderThan and gives their stock back. It returns how many it cancelled.
	ExpireStaleOrders(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type orderService struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	productRepo repo.ProductRepo
	logger      *slog.Logger
}

func NewOrderService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	productRepo repo.ProductRepo,
	logger *slog.Logger,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, actor *domain.Actor, in PlaceOrderInput) (*domain.OrderDetail, error) {
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	var detail *domain.OrderDetail
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		order, err := buildOrder(ctx, tx, s.productRepo, actor, in.Items, in.ShippingAddress, in.PaymentMethod)
		if err != nil {
			return err
		}
		if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		if err := reserveStock(ctx, tx, s.productRepo, order.Items); err != nil {
			return err
		}
		detail, err = s.orderRepo.FindDetail(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		return nil, asAppError(err, "Failed to place order")
	}

	s.logger.InfoContext(ctx, "order placed",
		"order_id", detail.ID, "user", detail.UserID, "total", detail.TotalPrice.String())
	return detail, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor *domain.Actor, id string) (*domain.OrderDetail, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFoundErr("Order not found")
	}
	detail, err := s.orderRepo.FindDetail(ctx, nil, orderID)
	if err != nil {
		return nil, apperr.InternalErr("", err)
	}
	if detail == nil {
		return nil, apperr.NotFoundErr("Order not found")
	}
	// Orders of registered users are visible to their owner and admins only.
	if detail.UserID != domain.GuestUserID && !actor.IsAdmin() && actor.UserID() != detail.UserID {
		return nil, apperr.NotFoundErr("Order not found")
	}
	return detail, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.OrderDetail, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFoundErr("Order not found")
	}

	var detail *domain.OrderDetail
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		order, err := s.orderRepo.FindByIdForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperr.NotFoundErr("Order not found")
		}
		if !order.CanTransition(status) {
			return apperr.InvalidStateErr(fmt.Sprintf("Order cannot move from %s to %s", order.Status, status))
		}

		from := order.Status
		if status == domain.OrderCancelled && !order.IsPaid {
			if err := releaseStock(ctx, tx, s.productRepo, order.Items); err != nil {
				return err
			}
		}
		order.Status = status
		order.UpdatedAt = time.Now().UTC()
		ok, err := s.orderRepo.UpdateOrderStatus(ctx, tx, order, from)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidStateErr("Order changed concurrently")
		}
		detail, err = s.orderRepo.FindDetail(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, asAppError(err, "Failed to update order")
	}

	s.logger.InfoContext(ctx, "order status updated", "order_id", orderID, "status", status)
	return detail, nil
}

func (s *orderService) ExpireStaleOrders(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	stuck, err := s.orderRepo.FindStuckOrders(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stuck {
		cancelled := false
		err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			// re-read under lock: a settlement may have landed since the scan
			order, err := s.orderRepo.FindByIdForUpdate(ctx, tx, candidate.ID)
			if err != nil || order == nil {
				return err
			}
			if order.IsPaid || order.Status != domain.OrderPending {
				return nil
			}
			if err := releaseStock(ctx, tx, s.productRepo, order.Items); err != nil {
				return err
			}
			order.Status = domain.OrderCancelled
			order.UpdatedAt = time.Now().UTC()
			cancelled, err = s.orderRepo.UpdateOrderStatus(ctx, tx, order, domain.OrderPending)
			if err == nil && !cancelled {
				err = errors.New("order left pending state under lock")
			}
			return err
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to expire order", "order_id", candidate.ID, "err", err)
			continue
		}
		if cancelled {
			expired++
		}
	}
	return expired, nil
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return apperr.ValidationErr("At least one item is required")
	}
	for _, it := range items {
		if it.ProductID == uuid.Nil {
			return apperr.ValidationErr("Item product is required")
		}
		if it.Quantity < 1 {
			return apperr.ValidationErr("Item quantity must be at least 1")
		}
	}
	return nil
}

// buildOrder snapshots each product's current name, sale price and first
// image into a new pending order and prices it.
func buildOrder(
	ctx context.Context,
	tx *sql.Tx,
	products repo.ProductRepo,
	actor *domain.Actor,
	items []ItemInput,
	address *domain.Address,
	paymentMethod string,
) (*domain.Order, error) {
	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          actor.UserID(),
		ShippingAddress: domain.PlaceholderAddress(),
		PaymentMethod:   paymentMethod,
		Status:          domain.OrderPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if address != nil {
		order.ShippingAddress = *address
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = domain.DefaultPaymentMethod
	}

	for _, it := range items {
		product, err := products.FindById(ctx, tx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, apperr.NotFoundErr("Product not found: " + it.ProductID.String())
		}
		order.Items = append(order.Items, product.Snapshot(it.Quantity))
	}
	order.ApplyTotals()
	return order, nil
}

// reserveStock takes every line's quantity out of inventory. Lines are merged
// per product and applied in id order so concurrent checkouts lock rows in
// the same sequence.
func reserveStock(ctx context.Context, tx *sql.Tx, products repo.ProductRepo, items []domain.OrderItem) error {
	var short []apperr.StockShortage
	for _, ln := range mergeLines(items) {
		err := products.DecrementStock(ctx, tx, ln.ProductID, ln.Quantity)
		var ise *apperr.InsufficientStockError
		if errors.As(err, &ise) {
			short = append(short, ise.Items...)
			continue
		}
		if err != nil {
			return err
		}
	}
	if len(short) > 0 {
		return &apperr.InsufficientStockError{Items: short}
	}
	return nil
}

func releaseStock(ctx context.Context, tx *sql.Tx, products repo.ProductRepo, items []domain.OrderItem) error {
	for _, ln := range mergeLines(items) {
		if err := products.RestoreStock(ctx, tx, ln.ProductID, ln.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func mergeLines(items []domain.OrderItem) []ItemInput {
	want := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		want[it.ProductID] += it.Quantity
	}
	lines := make([]ItemInput, 0, len(want))
	for id, qty := range want {
		lines = append(lines, ItemInput{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID.String() < lines[j].ProductID.String() })
	return lines
}

// asAppError passes taxonomy errors through and wraps anything else as an
// internal failure with the given public message.
func asAppError(err error, msg string) error {
	if apperr.KindOf(err) != apperr.Internal {
		return err
	}
	return apperr.InternalErr(msg, err)
}
