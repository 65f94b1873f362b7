package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/katikolakarthik/manvi/internal/config"
	"github.com/katikolakarthik/manvi/internal/worker"
)

func sweepCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Cancel stale unpaid orders once and release their stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ttl > 0 {
				cfg.StaleOrderTTL = ttl
			}

			logger := newLogger(cfg)
			db, err := openDB(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			a := newApp(cfg, logger, db, nil)
			rw := worker.NewReconciliationWorker(a.orders, cfg.StaleOrderTTL, cfg.SweepInterval, logger)
			n, err := rw.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d stale orders\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "older-than", 0, "override STALE_ORDER_TTL (e.g. 45m)")
	return cmd
}
