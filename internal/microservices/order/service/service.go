package service

import "restaurant-pos/internal/microservices/order/repository"

type Service struct {
	OrderService OrderServiceInterface
}

func New(cfg Config, repo *repository.Repository, d Deps) *Service {
	d.Orders = repo.OrderRepo
	d.Drafts = repo.DraftRepo
	return &Service{
		OrderService: NewOrderService(cfg, d),
	}
}
