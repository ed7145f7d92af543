package service

import (
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/printer/repository"
	"restaurant-pos/internal/tickets"
)

type Service struct {
	PrinterService *PrinterService
}

func New(repo *repository.Repository, consumer Consumer, r *tickets.Renderer, sink tickets.Sink, cfg Config, lg *logger.Logger) *Service {
	return &Service{PrinterService: NewPrinterService(repo, consumer, r, sink, cfg, lg)}
}
