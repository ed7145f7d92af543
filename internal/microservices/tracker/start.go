package tracker

import (
	"github.com/go-chi/chi/v5"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/microservices/tracker/handlers"
	"restaurant-pos/internal/microservices/tracker/repository"
	"restaurant-pos/internal/microservices/tracker/service"
)

// Mount registers the tracking routes on r and returns the service that the
// order engine journals into. A nil conn keeps the journal in memory.
func Mount(r chi.Router, conn *db.Conn) *service.TrackerService {
	var repo repository.TrackerRepoInterface = repository.NewMemoryTracker()
	if conn != nil {
		repo = repository.NewTrackerRepo(conn)
	}
	svc := service.NewTrackerService(repo)
	handlers.New(svc).TrackerHandler.Routes(r)
	return svc
}
