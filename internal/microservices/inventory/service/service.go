package service

import (
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/inventory/repository"
)

type Service struct {
	InventoryService *InventoryService
}

func New(repo repository.StockRepositoryInterface, menu MenuLookup, expenses ExpenseRecorder, lg *logger.Logger) *Service {
	return &Service{InventoryService: NewInventoryService(repo, menu, expenses, lg)}
}
