package handlers

import "restaurant-pos/internal/microservices/order/service"

type Handler struct {
	OrderHandler *OrderHandler
}

func New(s *service.Service, auth Authorizer) *Handler {
	return &Handler{
		OrderHandler: NewOrderHandler(s.OrderService, auth),
	}
}
