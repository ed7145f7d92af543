package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/printer"
	printerservice "restaurant-pos/internal/microservices/printer/service"
)

var (
	workerName string
	heartbeat  time.Duration

	printerCmd = &cobra.Command{
		Use:   "ticket-printer",
		Short: "Consume queued tickets and send them to the printer",
		RunE:  runPrinter,
	}
)

func init() {
	printerCmd.Flags().StringVar(&workerName, "worker-name", "", "unique name of this printer worker")
	printerCmd.Flags().DurationVar(&heartbeat, "heartbeat-interval", 30*time.Second, "how often the worker reports itself online")
}

func runPrinter(cmd *cobra.Command, _ []string) error {
	if workerName == "" {
		return errors.New("--worker-name is required")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg := logger.NewWithLevel("ticket-printer", cfg.Log.Level)
	defer lg.Sync()

	loc, err := time.LoadLocation(cfg.Terminal.Location)
	if err != nil {
		return fmt.Errorf("terminal.location: %w", err)
	}

	in := &infra{}
	defer in.Close()
	if err := connectDB(ctx, cfg, lg, in); err != nil {
		return err
	}
	if err := connectRedis(ctx, cfg, lg, in, false); err != nil {
		return err
	}
	if err := connectMQ(cfg, lg, in); err != nil {
		return err
	}

	lg.Info("service_started", map[string]any{"worker": workerName, "sink": cfg.Printer.Sink})
	return printer.Run(ctx,
		printer.NewRepository(in.conn, in.rdb),
		in.mq,
		newRenderer(cfg, loc),
		newSink(cfg),
		printerservice.Config{
			WorkerName: workerName,
			SinkName:   cfg.Printer.Sink,
			Prefetch:   cfg.RabbitMQ.Prefetch,
			BeatEvery:  heartbeat,
		},
		lg,
	)
}
