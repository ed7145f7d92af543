package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"restaurant-pos/internal/common/logger"
	ledgerrepo "restaurant-pos/internal/microservices/ledger/repository"
	ledgerservice "restaurant-pos/internal/microservices/ledger/service"
)

var (
	syncOnce bool

	syncCmd = &cobra.Command{
		Use:   "ledger-sync",
		Short: "Replay sales that were kept in the local outbox while the ledger was down",
		RunE:  runSync,
	}
)

func init() {
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "replay the outbox a single time and exit")
}

func runSync(cmd *cobra.Command, _ []string) error {
	if cfg.Terminal.Storage != "postgres" {
		return errors.New("ledger-sync needs postgres storage")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg := logger.NewWithLevel("ledger-sync", cfg.Log.Level)
	defer lg.Sync()

	in := &infra{}
	defer in.Close()
	if err := connectDB(ctx, cfg, lg, in); err != nil {
		return err
	}
	if err := openOutbox(cfg, in); err != nil {
		return err
	}
	repo := ledgerrepo.New(in.conn, in.outbox)
	books := ledgerservice.NewLedger(repo.SalesRepo, repo.Outbox, lg)

	if syncOnce {
		n, err := books.Sync(ctx)
		lg.Info("ledger_sync_done", map[string]any{"synced": n})
		if err != nil {
			return fmt.Errorf("sync stopped after %d entries: %w", n, err)
		}
		return nil
	}

	loc, err := time.LoadLocation(cfg.Terminal.Location)
	if err != nil {
		return fmt.Errorf("terminal.location: %w", err)
	}
	sched, err := books.StartSync(ctx, cfg.Outbox.RetryInterval, loc)
	if err != nil {
		return err
	}
	defer sched.Stop()
	lg.Info("service_started", map[string]any{"every": cfg.Outbox.RetryInterval.String(), "outbox": cfg.Outbox.Path})
	<-ctx.Done()
	return nil
}
