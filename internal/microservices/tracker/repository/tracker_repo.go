package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurant-pos/internal/common/db"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/models"
)

type TrackerRepoInterface interface {
	UpsertOrderView(ctx context.Context, v models.OrderView) error
	AppendEvent(ctx context.Context, e domain.LifecycleEvent) error
	GetOrderView(ctx context.Context, id string) (models.OrderView, bool, error)
	GetOrderTimeline(ctx context.Context, id string, limit, offset int) ([]domain.LifecycleEvent, error)
}

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS order_events (
		id          BIGSERIAL PRIMARY KEY,
		order_id    TEXT NOT NULL,
		event_type  TEXT NOT NULL,
		payload     JSONB NOT NULL DEFAULT '{}',
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_events_order_idx ON order_events(order_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS orders_view (
		order_id   TEXT PRIMARY KEY,
		stage      TEXT NOT NULL,
		last_event TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

type TrackerRepo struct {
	db *db.Conn
}

func NewTrackerRepo(conn *db.Conn) *TrackerRepo { return &TrackerRepo{db: conn} }

func (r *TrackerRepo) UpsertOrderView(ctx context.Context, v models.OrderView) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders_view (order_id, stage, last_event, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id) DO UPDATE SET
		    stage = EXCLUDED.stage,
		    last_event = EXCLUDED.last_event,
		    updated_at = EXCLUDED.updated_at`,
		v.OrderID, string(v.Stage), string(v.LastEvent), v.UpdatedAt)
	return err
}

func (r *TrackerRepo) AppendEvent(ctx context.Context, e domain.LifecycleEvent) error {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	if e.Payload == nil {
		b = []byte("{}")
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO order_events (order_id, event_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4)`, e.OrderID, string(e.Type), b, e.OccurredAt)
	return err
}

func (r *TrackerRepo) GetOrderView(ctx context.Context, id string) (models.OrderView, bool, error) {
	var (
		v                models.OrderView
		stage, lastEvent string
	)
	err := r.db.QueryRow(ctx, `
		SELECT order_id, stage, last_event, updated_at FROM orders_view WHERE order_id = $1`, id).
		Scan(&v.OrderID, &stage, &lastEvent, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.OrderView{}, false, nil
	}
	if err != nil {
		return models.OrderView{}, false, err
	}
	v.Stage = models.Stage(stage)
	v.LastEvent = domain.EventType(lastEvent)
	return v, true, nil
}

func (r *TrackerRepo) GetOrderTimeline(ctx context.Context, id string, limit, offset int) ([]domain.LifecycleEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT event_type, payload, occurred_at
		FROM order_events WHERE order_id = $1
		ORDER BY occurred_at ASC, id ASC
		LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}
	defer rows.Close()

	var out []domain.LifecycleEvent
	for rows.Next() {
		var (
			t   string
			raw []byte
			at  time.Time
		)
		if err := rows.Scan(&t, &raw, &at); err != nil {
			return nil, err
		}
		var pl map[string]any
		_ = json.Unmarshal(raw, &pl)
		out = append(out, domain.LifecycleEvent{OrderID: id, Type: domain.EventType(t), Payload: pl, OccurredAt: at})
	}
	return out, rows.Err()
}

type MemoryTracker struct {
	mu     sync.Mutex
	events map[string][]domain.LifecycleEvent
	views  map[string]models.OrderView
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{events: make(map[string][]domain.LifecycleEvent), views: make(map[string]models.OrderView)}
}

func (m *MemoryTracker) UpsertOrderView(_ context.Context, v models.OrderView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[v.OrderID] = v
	return nil
}

func (m *MemoryTracker) AppendEvent(_ context.Context, e domain.LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.OrderID] = append(m.events[e.OrderID], e)
	return nil
}

func (m *MemoryTracker) GetOrderView(_ context.Context, id string) (models.OrderView, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[id]
	return v, ok, nil
}

func (m *MemoryTracker) GetOrderTimeline(_ context.Context, id string, limit, offset int) ([]domain.LifecycleEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := append([]domain.LifecycleEvent(nil), m.events[id]...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].OccurredAt.Before(all[j].OccurredAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
