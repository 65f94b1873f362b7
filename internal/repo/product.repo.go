package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/katikolakarthik/manvi/internal/apperr"
	"github.com/katikolakarthik/manvi/internal/domain"
)

// ProductRepo owns the catalog rows the checkout flow touches, including the
// inventory counter.
type ProductRepo interface {
	FindById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, tx *sql.Tx, p *domain.Product) error
	// DecrementStock takes qty units out of stock. It never lets stock go
	// negative: a short product yields *apperr.InsufficientStockError.
	DecrementStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) error
	RestoreStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) error
}

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

func (r *productRepo) FindById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := pick(r.db, tx).QueryRowContext(ctx,
		"SELECT id, name, price, discounted_price, images, stock, created_at, updated_at FROM products WHERE id = $1", id,
	).Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.DiscountedPrice,
		pgtype.NewMap().SQLScanner(&p.Images),
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) CreateProduct(ctx context.Context, tx *sql.Tx, p *domain.Product) error {
	_, err := pick(r.db, tx).ExecContext(ctx, `
		INSERT INTO products (id, name, price, discounted_price, images, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Price, p.DiscountedPrice, p.Images, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *productRepo) DecrementStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) error {
	q := pick(r.db, tx)
	res, err := q.ExecContext(ctx,
		"UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2",
		id, qty,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return apperr.NotFoundErr("Product not found: " + id.String())
	}
	return &apperr.InsufficientStockError{Items: []apperr.StockShortage{{ProductID: id.String(), Requested: qty}}}
}

func (r *productRepo) RestoreStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, qty int) error {
	_, err := pick(r.db, tx).ExecContext(ctx,
		"UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1",
		id, qty,
	)
	return err
}
