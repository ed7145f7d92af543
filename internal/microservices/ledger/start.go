package ledger

import (
	"time"

	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/ledger/handlers"
	"restaurant-pos/internal/microservices/ledger/repository"
	"restaurant-pos/internal/microservices/ledger/service"
)

// Mount wires sales, expenses, cash cuts and reports. Sales that cannot
// reach conn wait in outbox.
func Mount(r chi.Router, conn *db.Conn, outbox repository.OutboxInterface, tickets service.TicketDispatcher,
	menu service.MenuLookup, loc *time.Location, lg *logger.Logger) *service.Service {
	repo := repository.NewMemory(outbox)
	if conn != nil {
		repo = repository.New(conn, outbox)
	}
	svc := service.New(repo, tickets, menu, loc, lg)
	handlers.New(svc, loc).LedgerHandler.Routes(r)
	return svc
}
