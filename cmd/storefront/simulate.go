package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/katikolakarthik/manvi/internal/apperr"
	"github.com/katikolakarthik/manvi/internal/config"
	"github.com/katikolakarthik/manvi/internal/database"
	"github.com/katikolakarthik/manvi/internal/domain"
	"github.com/katikolakarthik/manvi/internal/infrastructure/payment"
	"github.com/katikolakarthik/manvi/internal/repo"
	"github.com/katikolakarthik/manvi/internal/service"
)

func simulateCmd() *cobra.Command {
	var orders int
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive checkouts through the mock gateway and print ledger state",
		Long: `Seed a few products and run checkouts end to end against the mock gateway.

Every fifth checkout submits a tampered signature and every fourth replays its
callback, so the output shows rejected and deduplicated settlements next to
the successful ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.RazorpaySecret == "" {
				cfg.RazorpaySecret = "simulate_secret"
			}
			logger := newLogger(cfg)
			db, err := openDB(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer db.Close()

			a := newApp(cfg, logger, db, payment.NewMockGateway())
			return runSimulation(cmd.Context(), cmd.OutOrStdout(), a, orders)
		},
	}
	cmd.Flags().IntVarP(&orders, "orders", "n", 20, "number of checkouts to run")
	return cmd
}

func seedProducts(ctx context.Context, db *sql.DB) ([]domain.Product, error) {
	products := repo.NewProductRepo(db)
	now := time.Now().UTC()
	catalog := []domain.Product{
		{Name: "Silk Saree", Price: decimal.NewFromInt(30), Stock: 50},
		{Name: "Cotton Kurta", Price: decimal.NewFromInt(25), DiscountedPrice: decimal.NewNullDecimal(decimal.NewFromInt(20)), Stock: 50},
		{Name: "Pashmina Stole", Price: decimal.RequireFromString("12.50"), Stock: 5},
	}
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		for i := range catalog {
			catalog[i].ID = uuid.New()
			catalog[i].Images = []string{fmt.Sprintf("sim-%d.jpg", i)}
			catalog[i].CreatedAt = now
			catalog[i].UpdatedAt = now
			if err := products.CreateProduct(ctx, tx, &catalog[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return catalog, err
}

func runSimulation(ctx context.Context, out io.Writer, a *app, n int) error {
	catalog, err := seedProducts(ctx, a.db)
	if err != nil {
		return fmt.Errorf("seed products: %w", err)
	}

	fmt.Fprintf(out, "--- STARTING SIMULATION (%d CHECKOUTS) ---\n", n)
	for i := 0; i < n; i++ {
		product := catalog[i%len(catalog)]
		items := []service.ItemInput{{ProductID: product.ID, Quantity: 1 + i%3}}

		// 1. Quote
		total := domain.ComputeTotals([]domain.OrderItem{product.Snapshot(items[0].Quantity)}).Total
		po, err := a.payments.CreateProviderOrder(ctx, service.CreateProviderOrderInput{Amount: total})
		if err != nil {
			fmt.Fprintf(out, "[%d] create order failed: %v\n", i+1, err)
			continue
		}

		// 2. Pay: the browser would receive these from the checkout widget
		paymentID := "pay_" + uuid.NewString()[:14]
		signature := payment.Sign(a.cfg.RazorpaySecret, po.ID(), paymentID)
		if i%5 == 4 {
			signature = payment.Sign("attacker", po.ID(), paymentID)
		}
		in := service.SettleInput{
			ProviderOrderID:   po.ID(),
			ProviderPaymentID: paymentID,
			ProviderSignature: signature,
			Amount:            total,
			Items:             items,
		}

		// 3. Settle
		fmt.Fprintf(out, "[%d] %s x%d, total %s ... ", i+1, product.Name, items[0].Quantity, total.StringFixed(2))
		res, err := a.payments.VerifyAndSettlePayment(ctx, nil, in)
		if err != nil {
			fmt.Fprintf(out, "REJECTED (%s): %s\n", apperr.KindOf(err), apperr.PublicMessage(err))
			continue
		}
		fmt.Fprintf(out, "SETTLED order=%s status=%s\n", res.Order.ID, res.Order.Status)

		if i%4 == 3 {
			_, err := a.payments.VerifyAndSettlePayment(ctx, nil, in)
			fmt.Fprintf(out, "    -> replayed callback: %s\n", apperr.KindOf(err))
		}
	}
	fmt.Fprintln(out, "---------------------------------------------------")

	payments, err := a.payments.ListPayments(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "payments recorded: %d\n", len(payments))
	for _, p := range catalog {
		var stock int
		if err := a.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, p.ID).Scan(&stock); err != nil {
			return err
		}
		fmt.Fprintf(out, "stock %-16s %d\n", p.Name, stock)
	}
	return nil
}
