package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/katikolakarthik/manvi/internal/config"
	"github.com/katikolakarthik/manvi/internal/database"
	"github.com/katikolakarthik/manvi/internal/server"
	"github.com/katikolakarthik/manvi/internal/worker"
)

func serveCmd() *cobra.Command {
	var noSweeper bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the stale order sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, !noSweeper)
		},
	}
	cmd.Flags().BoolVar(&noSweeper, "no-sweeper", false, "do not run the stale order sweeper in this process")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config, sweep bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	db, err := openDB(ctx, cfg, true)
	if err != nil {
		return err
	}
	dbService := database.New(db, logger)
	defer dbService.Close()

	a := newApp(cfg, logger, db, nil)

	if sweep {
		rw := worker.NewReconciliationWorker(a.orders, cfg.StaleOrderTTL, cfg.SweepInterval, logger)
		go rw.Run(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Options{
		Payments:       a.payments,
		Orders:         a.orders,
		Health:         dbService,
		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	srv := server.NewHTTPServer(":"+cfg.Port, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr, "gateway", cfg.GatewayMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
