package service

import (
	"context"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/models"
	"restaurant-pos/internal/microservices/tracker/repository"
)

type TrackerServiceInterface interface {
	Append(ctx context.Context, ev domain.LifecycleEvent) error
	GetOrderView(ctx context.Context, id string) (models.OrderView, bool, error)
	GetOrderTimeline(ctx context.Context, id string, limit, offset int) ([]domain.LifecycleEvent, error)
}

type TrackerService struct {
	repo repository.TrackerRepoInterface
}

func NewTrackerService(repo repository.TrackerRepoInterface) *TrackerService {
	return &TrackerService{repo: repo}
}

// Append stores the event and folds it into the order's view. Events that do
// not move the order to another stage keep the current one.
func (s *TrackerService) Append(ctx context.Context, ev domain.LifecycleEvent) error {
	if err := s.repo.AppendEvent(ctx, ev); err != nil {
		return err
	}
	v, ok, err := s.repo.GetOrderView(ctx, ev.OrderID)
	if err != nil {
		return err
	}
	if !ok {
		v = models.OrderView{OrderID: ev.OrderID, Stage: models.StageOpen}
	}
	if next, moves := mapEventToStage(ev.Type); moves {
		v.Stage = next
	}
	v.LastEvent = ev.Type
	v.UpdatedAt = ev.OccurredAt
	return s.repo.UpsertOrderView(ctx, v)
}

func (s *TrackerService) GetOrderView(ctx context.Context, id string) (models.OrderView, bool, error) {
	return s.repo.GetOrderView(ctx, id)
}

func (s *TrackerService) GetOrderTimeline(ctx context.Context, id string, limit, offset int) ([]domain.LifecycleEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetOrderTimeline(ctx, id, limit, offset)
}

func mapEventToStage(t domain.EventType) (models.Stage, bool) {
	switch t {
	case domain.EventOpened, domain.EventUnmerged:
		return models.StageOpen, true
	case domain.EventSentToKitchen:
		return models.StageInKitchen, true
	case domain.EventPreCheck:
		return models.StageBilled, true
	case domain.EventMerged:
		return models.StageMerged, true
	case domain.EventPaid:
		return models.StagePaid, true
	case domain.EventVoided:
		return models.StageVoided, true
	default:
		return "", false
	}
}
