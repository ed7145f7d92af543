package order

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/microservices/order/handlers"
	"restaurant-pos/internal/microservices/order/repository"
	"restaurant-pos/internal/microservices/order/service"
)

// Mount builds the order engine, loads the saved tables and registers the
// order routes.
func Mount(ctx context.Context, r chi.Router, conn *db.Conn, cfg service.Config, deps service.Deps, auth handlers.Authorizer) (*service.Service, error) {
	repo := repository.NewMemory()
	if conn != nil {
		repo = repository.New(conn)
	}
	svc := service.New(cfg, repo, deps)
	if err := svc.OrderService.Load(ctx); err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	handlers.New(svc, auth).OrderHandler.Routes(r)
	return svc, nil
}
