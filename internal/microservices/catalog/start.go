package catalog

import (
	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/microservices/catalog/handlers"
	"restaurant-pos/internal/microservices/catalog/repository"
	"restaurant-pos/internal/microservices/catalog/service"
)

func Mount(r chi.Router, conn *db.Conn, preferred []string) *service.CatalogService {
	var repo repository.MenuRepositoryInterface = repository.NewMemoryMenu()
	if conn != nil {
		repo = repository.NewMenuRepository(conn)
	}
	svc := service.NewCatalogService(repo, preferred)
	handlers.NewCatalogHandler(svc).Routes(r)
	return svc
}
