package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/katikolakarthik/manvi/internal/domain"
)

type PaymentRepo interface {
	// tx *sql.Tx -> transaction control
	CreatePayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error
	FindById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error)
	// FindByIdForUpdate locks the payment row until tx ends.
	FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error)
	FindByProviderPaymentId(ctx context.Context, tx *sql.Tx, providerPaymentID string) (*domain.Payment, error)
	// MarkRefunded records the refund only while the payment is still
	// completed. false means the payment moved on concurrently.
	MarkRefunded(ctx context.Context, tx *sql.Tx, payment *domain.Payment) (bool, error)
	// List returns payments newest first; an empty userID lists everyone's.
	List(ctx context.Context, userID string) ([]domain.PaymentWithOrder, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

const paymentColumns = `p.id, p.user_id, p.order_id, p.razorpay_order_id, p.razorpay_payment_id, p.razorpay_signature,
	p.amount, p.currency, p.status, p.payment_method, p.description, p.receipt, p.notes, p.refund_id,
	p.refund_amount, p.refund_reason, p.created_at, p.updated_at`

func paymentDest(p *domain.Payment) []any {
	return []any{
		&p.ID,
		&p.UserID,
		&p.OrderID,
		&p.RazorpayOrderID,
		&p.RazorpayPaymentID,
		&p.RazorpaySignature,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.PaymentMethod,
		&p.Description,
		&p.Receipt,
		&p.Notes,
		&p.RefundID,
		&p.RefundAmount,
		&p.RefundReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func (r *paymentRepo) CreatePayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	query := `INSERT INTO payments (id, user_id, order_id, razorpay_order_id, razorpay_payment_id, razorpay_signature,
		amount, currency, status, payment_method, description, receipt, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := tx.ExecContext(
		ctx, query, payment.ID, payment.UserID, payment.OrderID, payment.RazorpayOrderID, payment.RazorpayPaymentID,
		payment.RazorpaySignature, payment.Amount, payment.Currency, payment.Status, payment.PaymentMethod,
		payment.Description, payment.Receipt, payment.Notes, payment.CreatedAt, payment.UpdatedAt,
	)
	return err
}

func (r *paymentRepo) findOne(ctx context.Context, tx *sql.Tx, where string, arg any) (*domain.Payment, error) {
	var p domain.Payment
	err := pick(r.db, tx).QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments p WHERE "+where, arg).Scan(paymentDest(&p)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) FindById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error) {
	return r.findOne(ctx, tx, "p.id = $1", id)
}

func (r *paymentRepo) FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Payment, error) {
	if tx == nil {
		return nil, errors.New("FindByIdForUpdate requires a transaction")
	}
	return r.findOne(ctx, tx, "p.id = $1 FOR UPDATE", id)
}

func (r *paymentRepo) FindByProviderPaymentId(ctx context.Context, tx *sql.Tx, providerPaymentID string) (*domain.Payment, error) {
	return r.findOne(ctx, tx, "p.razorpay_payment_id = $1", providerPaymentID)
}

func (r *paymentRepo) MarkRefunded(ctx context.Context, tx *sql.Tx, payment *domain.Payment) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2,
		    refund_id = $3,
		    refund_amount = $4,
		    refund_reason = $5,
		    updated_at = $6
		WHERE id = $1 AND status = $7
	`
	res, err := pick(r.db, tx).ExecContext(
		ctx,
		query,
		payment.ID,
		domain.PaymentRefunded,
		payment.RefundID,
		payment.RefundAmount,
		payment.RefundReason,
		payment.UpdatedAt,
		domain.PaymentCompleted,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *paymentRepo) List(ctx context.Context, userID string) ([]domain.PaymentWithOrder, error) {
	query := `
		SELECT ` + paymentColumns + `, u.id, u.name, u.email, ` + orderColumns + `
		FROM payments p
		JOIN orders o ON o.id = p.order_id
		LEFT JOIN users u ON u.id = p.user_id
		WHERE ($1 = '' OR p.user_id = $1)
		ORDER BY p.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.PaymentWithOrder
	for rows.Next() {
		var (
			pw        domain.PaymentWithOrder
			userRowID sql.NullString
			userName  sql.NullString
			userEmail sql.NullString
		)
		dest := append(paymentDest(&pw.Payment), &userRowID, &userName, &userEmail)
		order, err := scanOrder(prefixScanner{rows: rows, prefix: dest})
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		pw.Order = order
		if userRowID.Valid {
			pw.User = &domain.UserSummary{ID: userRowID.String, Name: userName.String, Email: userEmail.String}
		}
		payments = append(payments, pw)
	}
	return payments, rows.Err()
}

// prefixScanner lets scanOrder decode the trailing order columns of a wider
// row whose leading columns belong to someone else.
type prefixScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (s prefixScanner) Scan(dest ...any) error {
	return s.rows.Scan(append(s.prefix, dest...)...)
}
