package inventory

import (
	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/inventory/handlers"
	"restaurant-pos/internal/microservices/inventory/repository"
	"restaurant-pos/internal/microservices/inventory/service"
)

// Mount wires stock control. Purchases are booked as expenses through
// expenses; menu resolves recipes at deduction time.
func Mount(r chi.Router, conn *db.Conn, menu service.MenuLookup, expenses service.ExpenseRecorder, lg *logger.Logger) *service.Service {
	var repo repository.StockRepositoryInterface = repository.NewMemoryStock()
	if conn != nil {
		repo = repository.NewStockRepository(conn)
	}
	svc := service.New(repo, menu, expenses, lg)
	handlers.NewInventoryHandler(svc.InventoryService).Routes(r)
	return svc
}
