// Package testutil boots throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/katikolakarthik/manvi/internal/database"
	"github.com/katikolakarthik/manvi/internal/domain"
)

// NewPostgres starts a Postgres container, applies the schema and returns a
// pool. Skipped under -short.
func NewPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(ctx, db))
	return db
}

// SeedProduct inserts a product with the given price and stock.
func SeedProduct(t *testing.T, db *sql.DB, name, price string, stock int) domain.Product {
	t.Helper()
	now := time.Now().UTC()
	p := domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Images:    []string{name + "-front.jpg", name + "-back.jpg"},
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.Exec(
		`INSERT INTO products (id, name, price, images, stock, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Price, p.Images, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	require.NoError(t, err)
	return p
}

// SeedUser inserts a user row.
func SeedUser(t *testing.T, db *sql.DB, id, name, email string, role domain.Role) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4)`, id, name, email, role)
	require.NoError(t, err)
}

// Stock reads a product's current stock.
func Stock(t *testing.T, db *sql.DB, id uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE id = $1`, id).Scan(&n))
	return n
}

// Count returns the number of rows in table.
func Count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM `+table).Scan(&n))
	return n
}
