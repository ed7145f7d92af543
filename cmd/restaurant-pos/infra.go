package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"restaurant-pos/internal/common/cache"
	"restaurant-pos/internal/common/config"
	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/folio"
	catalogrepo "restaurant-pos/internal/microservices/catalog/repository"
	customerrepo "restaurant-pos/internal/microservices/customer/repository"
	inventoryrepo "restaurant-pos/internal/microservices/inventory/repository"
	ledgerrepo "restaurant-pos/internal/microservices/ledger/repository"
	orderrepo "restaurant-pos/internal/microservices/order/repository"
	orderservice "restaurant-pos/internal/microservices/order/service"
	printerrepo "restaurant-pos/internal/microservices/printer/repository"
	trackerrepo "restaurant-pos/internal/microservices/tracker/repository"
	"restaurant-pos/internal/tickets"
)

// infra holds the external connections of one process. Nil members are
// not configured.
type infra struct {
	conn   *db.Conn
	rdb    *redis.Client
	mq     *mq.Client
	outbox *ledgerrepo.SQLiteOutbox
}

func (i *infra) Close() {
	if i.outbox != nil {
		_ = i.outbox.Close()
	}
	if i.mq != nil {
		i.mq.Close()
	}
	if i.rdb != nil {
		_ = i.rdb.Close()
	}
	i.conn.Close()
}

func schema() []string {
	var all []string
	all = append(all, folio.Schema...)
	all = append(all, orderrepo.Schema...)
	all = append(all, catalogrepo.Schema...)
	all = append(all, customerrepo.Schema...)
	all = append(all, inventoryrepo.Schema...)
	all = append(all, ledgerrepo.Schema...)
	all = append(all, trackerrepo.Schema...)
	all = append(all, printerrepo.Schema...)
	return all
}

func connectDB(ctx context.Context, c *config.App, lg *logger.Logger, in *infra) error {
	if c.Terminal.Storage != "postgres" {
		return nil
	}
	conn, err := db.Connect(ctx, c.Database, lg)
	if err != nil {
		return err
	}
	in.conn = conn
	if err := conn.Migrate(ctx, schema()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func connectMQ(c *config.App, lg *logger.Logger, in *infra) error {
	client, err := mq.Dial(c.RabbitMQ)
	if err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	in.mq = client
	if err := client.DeclareAll(); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}
	lg.Info("rabbitmq_connected", map[string]any{"host": c.RabbitMQ.Host})
	return nil
}

// connectRedis fails only when required; otherwise an unreachable server is
// logged and skipped.
func connectRedis(ctx context.Context, c *config.App, lg *logger.Logger, in *infra, required bool) error {
	rdb, err := cache.Connect(ctx, c.Redis)
	if err != nil {
		if required {
			return err
		}
		lg.Warn("redis_unavailable", map[string]any{"addr": c.Redis.Addr, "error": err.Error()})
		return nil
	}
	in.rdb = rdb
	return nil
}

func openOutbox(c *config.App, in *infra) error {
	ob, err := ledgerrepo.OpenOutbox(c.Outbox.Path)
	if err != nil {
		return err
	}
	in.outbox = ob
	return nil
}

func newFolio(c *config.App, in *infra) (orderservice.FolioAllocator, error) {
	switch c.Terminal.FolioBackend {
	case "postgres":
		return folio.NewPostgres(in.conn, c.Terminal.FolioBase), nil
	case "redis":
		if in.rdb == nil {
			return nil, fmt.Errorf("folio backend redis: no redis connection")
		}
		return folio.NewRedis(in.rdb, c.Terminal.FolioBase), nil
	default:
		return folio.NewMemory(c.Terminal.FolioBase), nil
	}
}

func newRenderer(c *config.App, loc *time.Location) *tickets.Renderer {
	return tickets.NewRenderer(c.Printer.Width, c.Printer.Header, loc)
}

func newSink(c *config.App) tickets.Sink {
	if c.Printer.Sink == "http" {
		return tickets.NewHTTPSink(c.Printer.URL, c.Printer.Timeout)
	}
	return tickets.NewWriterSink(os.Stdout)
}
