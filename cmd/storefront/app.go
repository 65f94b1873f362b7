package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/katikolakarthik/manvi/internal/config"
	"github.com/katikolakarthik/manvi/internal/database"
	"github.com/katikolakarthik/manvi/internal/infrastructure/payment"
	"github.com/katikolakarthik/manvi/internal/repo"
	"github.com/katikolakarthik/manvi/internal/service"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *sql.DB
	gateway  payment.Gateway
	orders   service.OrderService
	payments service.PaymentService
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func newGateway(cfg *config.Config) payment.Gateway {
	if cfg.GatewayMode == config.GatewayMock {
		return payment.NewMockGateway()
	}
	return payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpaySecret)
}

func openDB(ctx context.Context, cfg *config.Config, migrate bool) (*sql.DB, error) {
	db, err := database.NewPostgres(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// newApp wires the services over db. gateway may be nil, in which case it
// follows GATEWAY_MODE.
func newApp(cfg *config.Config, logger *slog.Logger, db *sql.DB, gateway payment.Gateway) *app {
	if gateway == nil {
		gateway = newGateway(cfg)
	}
	orderRepo := repo.NewOrderRepo(db)
	paymentRepo := repo.NewPaymentRepo(db)
	productRepo := repo.NewProductRepo(db)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		gateway:  gateway,
		orders:   service.NewOrderService(db, orderRepo, productRepo, logger),
		payments: service.NewPaymentService(db, orderRepo, paymentRepo, productRepo, gateway, cfg.RazorpaySecret, logger),
	}
}
