package customer

import (
	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/microservices/customer/handlers"
	"restaurant-pos/internal/microservices/customer/repository"
	"restaurant-pos/internal/microservices/customer/service"
)

func Mount(r chi.Router, conn *db.Conn) *service.CustomerService {
	var repo repository.CustomerRepositoryInterface = repository.NewMemoryCustomers()
	if conn != nil {
		repo = repository.NewCustomerRepository(conn)
	}
	svc := service.NewCustomerService(repo)
	handlers.NewCustomerHandler(svc).Routes(r)
	return svc
}
