package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/katikolakarthik/manvi/internal/apperr"
	"github.com/katikolakarthik/manvi/internal/database"
	"github.com/katikolakarthik/manvi/internal/domain"
	"github.com/katikolakarthik/manvi/internal/infrastructure/payment"
	"github.com/katikolakarthik/manvi/internal/repo"
)

type CreateProviderOrderInput struct {
	Amount   decimal.Decimal // display units
	Currency string
	Receipt  string
	Notes    map[string]any
}

type SettleInput struct {
	ProviderOrderID   string
	ProviderPaymentID string
	ProviderSignature string
	Amount            decimal.Decimal // zero means the order total
	OrderID           string          // empty: build the order from Items
	Description       string
	Items             []ItemInput
	ShippingAddress   *domain.Address
	PaymentMethod     string
}

type SettleResult struct {
	Order   *domain.OrderDetail
	Payment *domain.Payment
}

type RefundInput struct {
	PaymentID string
	Amount    decimal.Decimal // zero means the full payment amount
	Reason    string
}

type RefundResult struct {
	ID     string
	Amount decimal.Decimal
	Reason string
}

// PaymentService reconciles provider payments with the order and payment
// ledgers.
type PaymentService interface {
	CreateProviderOrder(ctx context.Context, in CreateProviderOrderInput) (payment.ProviderOrder, error)
	FetchProviderOrder(ctx context.Context, providerOrderID string) (payment.ProviderOrder, error)
	VerifyAndSettlePayment(ctx context.Context, actor *domain.Actor, in SettleInput) (*SettleResult, error)
	Refund(ctx context.Context, in RefundInput) (*RefundResult, error)
	ListPayments(ctx context.Context) ([]domain.PaymentWithOrder, error)
	ListUserPayments(ctx context.Context, userID string) ([]domain.PaymentWithOrder, error)
}

type paymentService struct {
	db          *sql.DB
	orderRepo   repo.OrderRepo
	paymentRepo repo.PaymentRepo
	productRepo repo.ProductRepo
	gateway     payment.Gateway
	secret      string
	logger      *slog.Logger
}

func NewPaymentService(
	db *sql.DB,
	orderRepo repo.OrderRepo,
	paymentRepo repo.PaymentRepo,
	productRepo repo.ProductRepo,
	gateway payment.Gateway,
	secret string,
	logger *slog.Logger,
) PaymentService {
	return &paymentService{
		db:          db,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		productRepo: productRepo,
		gateway:     gateway,
		secret:      secret,
		logger:      logger,
	}
}

func newReceipt() string {
	return fmt.Sprintf("receipt_%d", time.Now().UnixMilli())
}

func (s *paymentService) CreateProviderOrder(ctx context.Context, in CreateProviderOrderInput) (payment.ProviderOrder, error) {
	if in.Amount.IsZero() {
		return nil, apperr.ValidationErr("Amount is required")
	}
	if in.Amount.IsNegative() || domain.ToMinorUnits(in.Amount) <= 0 {
		return nil, apperr.ValidationErr("Amount must be positive")
	}
	req := payment.CreateOrderRequest{
		AmountMinor: domain.ToMinorUnits(in.Amount),
		Currency:    in.Currency,
		Receipt:     in.Receipt,
		Notes:       in.Notes,
	}
	if req.Currency == "" {
		req.Currency = domain.Currency
	}
	if req.Receipt == "" {
		req.Receipt = newReceipt()
	}
	if req.Notes == nil {
		req.Notes = map[string]any{}
	}

	order, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "provider order creation failed", "amount_minor", req.AmountMinor, "err", err)
		return nil, apperr.GatewayErr("Failed to create order", err)
	}
	s.logger.InfoContext(ctx, "provider order created", "provider_order_id", order.ID(), "amount_minor", req.AmountMinor)
	return order, nil
}

func (s *paymentService) FetchProviderOrder(ctx context.Context, providerOrderID string) (payment.ProviderOrder, error) {
	if providerOrderID == "" {
		return nil, apperr.ValidationErr("Order id is required")
	}
	order, err := s.gateway.FetchOrder(ctx, providerOrderID)
	if err != nil {
		var nf *payment.ErrProviderOrderNotFound
		if errors.As(err, &nf) {
			return nil, apperr.NotFoundErr("Order not found")
		}
		return nil, apperr.GatewayErr("Failed to fetch order", err)
	}
	return order, nil
}

// VerifyAndSettlePayment authenticates a checkout callback and, in one
// transaction, resolves or builds the order, records the payment and marks
// the order paid. Nothing is written unless the signature matches.
func (s *paymentService) VerifyAndSettlePayment(ctx context.Context, actor *domain.Actor, in SettleInput) (*SettleResult, error) {
	if in.ProviderOrderID == "" || in.ProviderPaymentID == "" || in.ProviderSignature == "" {
		return nil, apperr.ValidationErr("Missing payment verification parameters")
	}
	if !payment.VerifySignature(s.secret, in.ProviderOrderID, in.ProviderPaymentID, in.ProviderSignature) {
		s.logger.WarnContext(ctx, "payment signature mismatch",
			"potential_tamper", true,
			"provider_order_id", in.ProviderOrderID,
			"provider_payment_id", in.ProviderPaymentID,
			"user", actor.UserID(),
		)
		return nil, apperr.SignatureErr()
	}
	if in.Amount.IsNegative() {
		return nil, apperr.ValidationErr("Amount must be positive")
	}
	if in.OrderID == "" {
		if err := validateItems(in.Items); err != nil {
			return nil, err
		}
	}

	existing, err := s.paymentRepo.FindByProviderPaymentId(ctx, nil, in.ProviderPaymentID)
	if err != nil {
		return nil, apperr.InternalErr("Failed to validate payment", err)
	}
	if existing != nil {
		return nil, apperr.AlreadySettledErr("Payment already processed")
	}

	var result SettleResult
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		order, err := s.resolveOrder(ctx, tx, actor, in)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		method := in.PaymentMethod
		if method == "" {
			method = domain.DefaultPaymentMethod
		}
		description := in.Description
		if description == "" {
			description = "Payment for order"
		}
		amount := in.Amount
		if amount.IsZero() {
			amount = order.TotalPrice
		}

		p := &domain.Payment{
			ID:                uuid.New(),
			UserID:            actor.UserID(),
			OrderID:           order.ID,
			RazorpayOrderID:   in.ProviderOrderID,
			RazorpayPaymentID: in.ProviderPaymentID,
			RazorpaySignature: in.ProviderSignature,
			Amount:            amount,
			Currency:          domain.Currency,
			Status:            domain.PaymentCompleted,
			PaymentMethod:     method,
			Description:       description,
			Receipt:           newReceipt(),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := s.paymentRepo.CreatePayment(ctx, tx, p); err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.AlreadySettledErr("Payment already processed")
			}
			return err
		}

		order.Status = domain.OrderProcessing
		order.IsPaid = true
		order.PaidAt = &now
		order.UpdatedAt = now
		order.PaymentResult = &domain.PaymentResult{
			ID:           in.ProviderPaymentID,
			Status:       string(domain.PaymentCompleted),
			UpdateTime:   now.Format(time.RFC3339Nano),
			EmailAddress: actor.EmailAddress(),
		}
		ok, err := s.orderRepo.MarkPaid(ctx, tx, order)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.AlreadySettledErr("Order already paid")
		}

		detail, err := s.orderRepo.FindDetail(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		result = SettleResult{Order: detail, Payment: p}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "payment settlement failed",
			"provider_order_id", in.ProviderOrderID,
			"provider_payment_id", in.ProviderPaymentID,
			"err", err,
		)
		return nil, asAppError(err, "Failed to validate payment")
	}

	s.logger.InfoContext(ctx, "payment settled",
		"order_id", result.Order.ID,
		"payment_id", result.Payment.ID,
		"provider_payment_id", in.ProviderPaymentID,
		"amount", result.Payment.Amount.String(),
	)
	return &result, nil
}

// resolveOrder locks the referenced order, or builds a new one from the
// submitted items and reserves its stock. Stock for a pending order was
// reserved when it was placed; a cancelled order released it and reserves
// it again here.
func (s *paymentService) resolveOrder(ctx context.Context, tx *sql.Tx, actor *domain.Actor, in SettleInput) (*domain.Order, error) {
	if in.OrderID != "" {
		id, err := uuid.Parse(in.OrderID)
		if err != nil {
			return nil, apperr.NotFoundErr("Order not found")
		}
		order, err := s.orderRepo.FindByIdForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, apperr.NotFoundErr("Order not found")
		}
		if order.IsPaid {
			return nil, apperr.AlreadySettledErr("Order already paid")
		}
		switch order.Status {
		case domain.OrderPending:
		case domain.OrderCancelled:
			// Expired or cancelled before the callback arrived; the provider
			// already captured the money, so take the stock back and settle.
			s.logger.WarnContext(ctx, "settling cancelled order",
				"order_id", order.ID, "provider_payment_id", in.ProviderPaymentID)
			if err := reserveStock(ctx, tx, s.productRepo, order.Items); err != nil {
				return nil, err
			}
		default:
			return nil, apperr.InvalidStateErr(fmt.Sprintf("Order is %s", order.Status))
		}
		return order, nil
	}

	order, err := buildOrder(ctx, tx, s.productRepo, actor, in.Items, in.ShippingAddress, in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := reserveStock(ctx, tx, s.productRepo, order.Items); err != nil {
		return nil, err
	}
	return order, nil
}

// Refund returns money for a completed payment through the provider. The
// payment row stays locked from the status check until the ledger records
// the refund, so concurrent requests for one payment reach the provider at
// most once. The order and inventory are left untouched.
func (s *paymentService) Refund(ctx context.Context, in RefundInput) (*RefundResult, error) {
	id, err := uuid.Parse(in.PaymentID)
	if err != nil {
		return nil, apperr.NotFoundErr("Payment not found")
	}
	if in.Amount.IsNegative() {
		return nil, apperr.ValidationErr("Refund amount must be positive")
	}

	var (
		result    RefundResult
		issued    bool
		ledgerErr error
	)
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		p, err := s.paymentRepo.FindByIdForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NotFoundErr("Payment not found")
		}
		if !p.Refundable() {
			return apperr.InvalidStateErr("Payment cannot be refunded")
		}

		amount := in.Amount
		if amount.IsZero() {
			amount = p.Amount
		}
		if domain.ToMinorUnits(amount) <= 0 {
			return apperr.ValidationErr("Refund amount must be positive")
		}
		if amount.GreaterThan(p.Amount) {
			return apperr.ValidationErr("Refund amount exceeds payment amount")
		}

		reason := in.Reason
		if reason == "" {
			reason = "Refund requested"
		}
		refund, err := s.gateway.Refund(ctx, payment.RefundRequest{
			ProviderPaymentID: p.RazorpayPaymentID,
			AmountMinor:       domain.ToMinorUnits(amount),
			Reason:            reason,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "provider refund failed", "payment_id", p.ID, "err", err)
			return apperr.GatewayErr("Error refunding payment", err)
		}
		issued = true
		result = RefundResult{ID: refund.ID, Amount: amount, Reason: in.Reason}

		p.RefundID = refund.ID
		p.RefundAmount = decimal.NewNullDecimal(amount)
		p.RefundReason = in.Reason
		p.UpdatedAt = time.Now().UTC()
		ok, err := s.paymentRepo.MarkRefunded(ctx, tx, p)
		if err != nil {
			ledgerErr = err
			return err
		}
		if !ok {
			ledgerErr = errors.New("payment left completed state under lock")
			return ledgerErr
		}
		return nil
	})
	if err != nil {
		if issued {
			// Money already left through the provider; this needs a human.
			s.logger.ErrorContext(ctx, "refund issued but ledger not updated",
				"payment_id", id, "refund_id", result.ID, "amount", result.Amount.String(),
				"ledger_err", ledgerErr, "err", err)
		}
		return nil, asAppError(err, "Error refunding payment")
	}

	s.logger.InfoContext(ctx, "payment refunded", "payment_id", id, "refund_id", result.ID, "amount", result.Amount.String())
	return &result, nil
}

func (s *paymentService) ListPayments(ctx context.Context) ([]domain.PaymentWithOrder, error) {
	payments, err := s.paymentRepo.List(ctx, "")
	if err != nil {
		return nil, apperr.InternalErr("", err)
	}
	return payments, nil
}

func (s *paymentService) ListUserPayments(ctx context.Context, userID string) ([]domain.PaymentWithOrder, error) {
	if userID == "" {
		return nil, apperr.UnauthorizedErr("Not authorized")
	}
	payments, err := s.paymentRepo.List(ctx, userID)
	if err != nil {
		return nil, apperr.InternalErr("", err)
	}
	return payments, nil
}
