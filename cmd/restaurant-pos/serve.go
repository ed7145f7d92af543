package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"restaurant-pos/internal/auth"
	"restaurant-pos/internal/common/config"
	"restaurant-pos/internal/common/httpx"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/microservices/catalog"
	"restaurant-pos/internal/microservices/customer"
	"restaurant-pos/internal/microservices/inventory"
	"restaurant-pos/internal/microservices/ledger"
	ledgerrepo "restaurant-pos/internal/microservices/ledger/repository"
	ledgerservice "restaurant-pos/internal/microservices/ledger/service"
	"restaurant-pos/internal/microservices/order"
	orderservice "restaurant-pos/internal/microservices/order/service"
	"restaurant-pos/internal/microservices/printer"
	"restaurant-pos/internal/microservices/tracker"
	"restaurant-pos/internal/tickets"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the terminal API: orders, billing, inventory and cash cuts",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg := logger.NewWithLevel("pos-server", cfg.Log.Level)
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
	if err := connectRedis(ctx, cfg, lg, in, cfg.Terminal.FolioBackend == "redis"); err != nil {
		return err
	}
	if err := openOutbox(cfg, in); err != nil {
		return err
	}
	folios, err := newFolio(cfg, in)
	if err != nil {
		return err
	}

	var dispatcher orderservice.TicketDispatcher
	if cfg.Terminal.Tickets == "amqp" {
		if err := connectMQ(cfg, lg, in); err != nil {
			return err
		}
		dispatcher = tickets.NewPublisher(in.mq, cfg.Terminal.Name)
	} else {
		dispatcher = tickets.NewLocalDispatcher(newRenderer(cfg, loc), newSink(cfg), lg.Named("tickets"))
	}

	r, books, err := newRouter(ctx, cfg, in, folios, dispatcher, loc, lg)
	if err != nil {
		return err
	}

	sched, err := books.StartSync(ctx, cfg.Outbox.RetryInterval, loc)
	if err != nil {
		return err
	}
	defer sched.Stop()

	lg.Info("service_started", map[string]any{
		"addr": cfg.HTTP.Addr, "terminal": cfg.Terminal.Name, "storage": cfg.Terminal.Storage,
		"tickets": cfg.Terminal.Tickets, "folio": cfg.Terminal.FolioBackend,
	})
	return httpx.New(cfg.HTTP, r).Run(ctx)
}

// newRouter assembles the API over in. Members of in that are nil fall back
// to in-memory stores.
func newRouter(ctx context.Context, c *config.App, in *infra, folios orderservice.FolioAllocator,
	dispatcher orderservice.TicketDispatcher, loc *time.Location, lg *logger.Logger,
) (http.Handler, *ledgerservice.Ledger, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "terminal": c.Terminal.Name})
	})
	r.Handle("/metrics", metrics.Handler())

	var (
		books    *ledgerservice.Ledger
		mountErr error
	)
	r.Route("/api/v1", func(api chi.Router) {
		journal := tracker.Mount(api, in.conn)
		menu := catalog.Mount(api, in.conn, c.Terminal.PreferredCategories)
		var outbox ledgerrepo.OutboxInterface
		if in.outbox != nil {
			outbox = in.outbox
		}
		ledgerSvc := ledger.Mount(api, in.conn, outbox, dispatcher, menu, loc, lg.Named("ledger"))
		books = ledgerSvc.Ledger
		stock := inventory.Mount(api, in.conn, menu, ledgerSvc.ExpenseService, lg.Named("inventory"))
		printer.Mount(api, printer.NewRepository(in.conn, in.rdb))
		customers := customer.Mount(api, in.conn)

		_, mountErr = order.Mount(ctx, api, in.conn,
			orderservice.Config{TableCount: c.Terminal.TableCount, Terminal: c.Terminal.Name},
			orderservice.Deps{
				Catalog:   menu,
				Folio:     folios,
				Tickets:   dispatcher,
				Ledger:    books,
				Inventory: stock.InventoryService,
				Journal:   journal,
				Customers: customers,
				Logger:    lg.Named("orders"),
			},
			auth.NewPINAuthorizer(c.Users),
		)
	})
	if mountErr != nil {
		return nil, nil, mountErr
	}
	return r, books, nil
}
