package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/katikolakarthik/manvi/internal/domain"
)

type OrderRepo interface {
	// tx may be nil for plain reads.
	FindById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	// FindByIdForUpdate locks the order row until tx ends.
	FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	FindDetail(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.OrderDetail, error)
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	// MarkPaid flips is_paid only if the order is still unpaid. false means
	// another settlement won.
	MarkPaid(ctx context.Context, tx *sql.Tx, order *domain.Order) (bool, error)
	// UpdateOrderStatus moves the order only if it is still in from.
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order, from domain.OrderStatus) (bool, error)
	FindStuckOrders(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `o.id, o.user_id, o.shipping_address, o.payment_method, o.items_price, o.tax_price,
	o.shipping_price, o.total_price, o.status, o.is_paid, o.paid_at, o.payment_result, o.created_at, o.updated_at`

func scanOrder(row scanner, extra ...any) (*domain.Order, error) {
	var (
		order   domain.Order
		address []byte
		result  []byte
		paidAt  sql.NullTime
	)
	dest := []any{
		&order.ID,
		&order.UserID,
		&address,
		&order.PaymentMethod,
		&order.ItemsPrice,
		&order.TaxPrice,
		&order.ShippingPrice,
		&order.TotalPrice,
		&order.Status,
		&order.IsPaid,
		&paidAt,
		&result,
		&order.CreatedAt,
		&order.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if len(result) > 0 {
		order.PaymentResult = &domain.PaymentResult{}
		if err := json.Unmarshal(result, order.PaymentResult); err != nil {
			return nil, fmt.Errorf("decode payment result: %w", err)
		}
	}
	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}
	return &order, nil
}

func (r *orderRepo) FindById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	return r.find(ctx, tx, id, "")
}

func (r *orderRepo) FindByIdForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	if tx == nil {
		return nil, errors.New("FindByIdForUpdate requires a transaction")
	}
	return r.find(ctx, tx, id, " FOR UPDATE")
}

func (r *orderRepo) find(ctx context.Context, tx *sql.Tx, id uuid.UUID, lock string) (*domain.Order, error) {
	q := pick(r.db, tx)
	order, err := scanOrder(q.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders o WHERE o.id = $1"+lock, id))
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}

	items, err := r.loadItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		order.Items = append(order.Items, it.OrderItem)
	}
	return order, nil
}

func (r *orderRepo) loadItems(ctx context.Context, q execer, orderID uuid.UUID) ([]domain.OrderItemDetail, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT i.product_id, i.name, i.quantity, i.price, i.image, p.id, p.name, p.images
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := pgtype.NewMap()
	var items []domain.OrderItemDetail
	for rows.Next() {
		var (
			it          domain.OrderItem
			productID   uuid.NullUUID
			productName sql.NullString
			images      []string
		)
		if err := rows.Scan(
			&it.ProductID,
			&it.Name,
			&it.Quantity,
			&it.Price,
			&it.Image,
			&productID,
			&productName,
			types.SQLScanner(&images),
		); err != nil {
			return nil, err
		}
		var product *domain.ProductSummary
		if productID.Valid {
			product = &domain.ProductSummary{ID: productID.UUID, Name: productName.String, Images: images}
		}
		items = append(items, domain.NewOrderItemDetail(it, product))
	}
	return items, rows.Err()
}

func (r *orderRepo) FindDetail(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.OrderDetail, error) {
	q := pick(r.db, tx)
	var (
		userID    sql.NullString
		userName  sql.NullString
		userEmail sql.NullString
	)
	order, err := scanOrder(q.QueryRowContext(ctx, `
		SELECT `+orderColumns+`, u.id, u.name, u.email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.id = $1`, id), &userID, &userName, &userEmail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	detail := &domain.OrderDetail{Order: *order, Items: items}
	for _, it := range items {
		detail.Order.Items = append(detail.Order.Items, it.OrderItem)
	}
	if userID.Valid {
		detail.User = &domain.UserSummary{ID: userID.String, Name: userName.String, Email: userEmail.String}
	}
	return detail, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, shipping_address, payment_method, items_price, tax_price, shipping_price,
			total_price, status, is_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		order.ID, order.UserID, address, order.PaymentMethod, order.ItemsPrice, order.TaxPrice, order.ShippingPrice,
		order.TotalPrice, order.Status, order.IsPaid, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for i, it := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, quantity, price, image)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, i, it.ProductID, it.Name, it.Quantity, it.Price, it.Image,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *orderRepo) MarkPaid(ctx context.Context, tx *sql.Tx, order *domain.Order) (bool, error) {
	result, err := json.Marshal(order.PaymentResult)
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, is_paid = true, paid_at = $3, payment_result = $4, updated_at = $5
		WHERE id = $1 AND is_paid = false`,
		order.ID, order.Status, order.PaidAt, result, order.UpdatedAt,
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

func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order, from domain.OrderStatus) (bool, error) {
	res, err := pick(r.db, tx).ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		order.Status, order.UpdatedAt, order.ID, from,
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

func (r *orderRepo) FindStuckOrders(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders o WHERE o.status = $1 AND o.is_paid = false AND o.updated_at < $2 ORDER BY o.updated_at LIMIT $3",
		domain.OrderPending, time.Now().Add(-olderThan), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.loadItems(ctx, r.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			orders[i].Items = append(orders[i].Items, it.OrderItem)
		}
	}
	return orders, nil
}
