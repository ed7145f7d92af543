package printer

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/printer/handlers"
	"restaurant-pos/internal/microservices/printer/repository"
	"restaurant-pos/internal/microservices/printer/service"
	"restaurant-pos/internal/tickets"
)

// NewRepository picks the worker registry for conn. Without redis the
// printed-ticket dedupe is process local.
func NewRepository(conn *db.Conn, rdb *redis.Client) *repository.Repository {
	if conn == nil {
		return repository.NewMemory()
	}
	if rdb == nil {
		return repository.New(conn, nil)
	}
	return repository.New(conn, rdb)
}

// Mount exposes the printer worker registry.
func Mount(r chi.Router, repo *repository.Repository) {
	handlers.NewPrinterHandler(repo.PrinterRepo).Routes(r)
}

// Run consumes the ticket queue until ctx is cancelled or the broker drops
// the consumer.
func Run(ctx context.Context, repo *repository.Repository, consumer service.Consumer, renderer *tickets.Renderer, sink tickets.Sink, cfg service.Config, lg *logger.Logger) error {
	svc := service.New(repo, consumer, renderer, sink, cfg, lg)
	return svc.PrinterService.Run(ctx)
}
