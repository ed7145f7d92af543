package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/ledger/repository"
)

const syncBatch = 100

type LedgerServiceInterface interface {
	Record(ctx context.Context, sale domain.SaleRecord) (bool, error)
	Cancel(ctx context.Context, id string) error
	Sync(ctx context.Context) (int, error)
	Sales(ctx context.Context, from, to time.Time) ([]domain.SaleRecord, error)
	Pending(ctx context.Context) (int, error)
}

type cancelPayload struct {
	ID          string    `json:"id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Ledger writes sales to the shared store and falls back to the local
// outbox when that store is unreachable.
type Ledger struct {
	sales  repository.SalesRepositoryInterface
	outbox repository.OutboxInterface
	lg     *logger.Logger
	now    func() time.Time
}

func NewLedger(sales repository.SalesRepositoryInterface, outbox repository.OutboxInterface, lg *logger.Logger) *Ledger {
	if lg == nil {
		lg = logger.Nop()
	}
	return &Ledger{sales: sales, outbox: outbox, lg: lg, now: func() time.Time { return time.Now().UTC() }}
}

// Record returns queued=true when the sale only reached the outbox. An
// error means the sale is stored nowhere.
func (l *Ledger) Record(ctx context.Context, sale domain.SaleRecord) (bool, error) {
	if sale.Status == "" {
		sale.Status = domain.SaleCompleted
	}
	remoteErr := l.sales.Upsert(ctx, sale)
	if remoteErr == nil {
		return false, nil
	}
	l.lg.Error("ledger_write_failed", remoteErr, map[string]any{"sale_id": sale.ID, "order_id": sale.OrderID})

	payload, err := json.Marshal(sale)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrSaleNotSaved, err)
	}
	if err := l.outbox.Enqueue(ctx, repository.OutboxSale, sale.ID, payload); err != nil {
		l.lg.Error("ledger_outbox_failed", err, map[string]any{"sale_id": sale.ID})
		return false, fmt.Errorf("%w: %v", domain.ErrSaleNotSaved, errors.Join(remoteErr, err))
	}
	metrics.LedgerQueued.Inc()
	l.lg.Warn("sale_queued", map[string]any{"sale_id": sale.ID, "total": sale.Total.String()})
	return true, nil
}

// Cancel marks a sale cancelled. Sales still waiting in the outbox and
// ledger outages both queue the cancellation behind the pending writes.
func (l *Ledger) Cancel(ctx context.Context, id string) error {
	at := l.now()
	err := l.sales.Cancel(ctx, id, at)
	if err == nil {
		l.lg.Info("sale_cancelled", map[string]any{"sale_id": id})
		return nil
	}
	if errors.Is(err, domain.ErrSaleNotFound) {
		queued, qerr := l.queuedSale(ctx, id)
		if qerr != nil {
			return qerr
		}
		if !queued {
			return err
		}
	} else {
		l.lg.Error("ledger_cancel_failed", err, map[string]any{"sale_id": id})
	}

	payload, _ := json.Marshal(cancelPayload{ID: id, CancelledAt: at})
	if qerr := l.outbox.Enqueue(ctx, repository.OutboxCancel, id, payload); qerr != nil {
		return errors.Join(err, qerr)
	}
	metrics.LedgerQueued.Inc()
	l.lg.Warn("sale_cancel_queued", map[string]any{"sale_id": id})
	return nil
}

func (l *Ledger) queuedSale(ctx context.Context, id string) (bool, error) {
	pending, err := l.outbox.Pending(ctx, 0)
	if err != nil {
		return false, err
	}
	for _, e := range pending {
		if e.Kind == repository.OutboxSale && e.Key == id {
			return true, nil
		}
	}
	return false, nil
}

// Sync replays the outbox in insertion order and stops at the first entry
// the ledger still rejects, so a cancel never overtakes its sale.
func (l *Ledger) Sync(ctx context.Context) (int, error) {
	synced := 0
	for {
		batch, err := l.outbox.Pending(ctx, syncBatch)
		if err != nil {
			return synced, err
		}
		if len(batch) == 0 {
			return synced, nil
		}
		for _, e := range batch {
			if err := l.apply(ctx, e); err != nil {
				_ = l.outbox.Failed(ctx, e.ID, err)
				l.lg.Error("outbox_replay_failed", err, map[string]any{"entry_id": e.ID, "kind": string(e.Kind), "key": e.Key, "attempts": e.Attempts + 1})
				return synced, err
			}
			if err := l.outbox.Done(ctx, e.ID); err != nil {
				return synced, err
			}
			synced++
			metrics.LedgerSynced.Inc()
		}
		if len(batch) < syncBatch {
			l.lg.Info("outbox_synced", map[string]any{"entries": synced})
			return synced, nil
		}
	}
}

func (l *Ledger) apply(ctx context.Context, e repository.OutboxEntry) error {
	switch e.Kind {
	case repository.OutboxSale:
		var sale domain.SaleRecord
		if err := json.Unmarshal(e.Payload, &sale); err != nil {
			l.lg.Error("outbox_entry_dropped", err, map[string]any{"entry_id": e.ID})
			return nil
		}
		return l.sales.Upsert(ctx, sale)
	case repository.OutboxCancel:
		var c cancelPayload
		if err := json.Unmarshal(e.Payload, &c); err != nil {
			l.lg.Error("outbox_entry_dropped", err, map[string]any{"entry_id": e.ID})
			return nil
		}
		err := l.sales.Cancel(ctx, c.ID, c.CancelledAt)
		if errors.Is(err, domain.ErrSaleNotFound) {
			l.lg.Warn("outbox_cancel_orphaned", map[string]any{"sale_id": c.ID})
			return nil
		}
		return err
	default:
		l.lg.Warn("outbox_unknown_kind", map[string]any{"entry_id": e.ID, "kind": string(e.Kind)})
		return nil
	}
}

// Sales lists the ledger for [from, to) with still-queued writes applied on
// top, so a terminal that lost its connection still sees its own sales.
func (l *Ledger) Sales(ctx context.Context, from, to time.Time) ([]domain.SaleRecord, error) {
	sales, err := l.sales.Range(ctx, from, to)
	if err != nil {
		return nil, err
	}
	pending, err := l.outbox.Pending(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return sales, nil
	}

	index := make(map[string]int, len(sales))
	for i, s := range sales {
		index[s.ID] = i
	}
	for _, e := range pending {
		switch e.Kind {
		case repository.OutboxSale:
			var s domain.SaleRecord
			if json.Unmarshal(e.Payload, &s) != nil || s.CreatedAt.Before(from) || !s.CreatedAt.Before(to) {
				continue
			}
			if _, ok := index[s.ID]; !ok {
				index[s.ID] = len(sales)
				sales = append(sales, s)
			}
		case repository.OutboxCancel:
			var c cancelPayload
			if json.Unmarshal(e.Payload, &c) != nil {
				continue
			}
			if i, ok := index[c.ID]; ok {
				at := c.CancelledAt
				sales[i].Status = domain.SaleCancelled
				sales[i].CancelledAt = &at
			}
		}
	}
	return sales, nil
}

func (l *Ledger) Pending(ctx context.Context) (int, error) {
	entries, err := l.outbox.Pending(ctx, 0)
	return len(entries), err
}

// StartSync schedules Sync on a gocron scheduler. The caller stops it.
func (l *Ledger) StartSync(ctx context.Context, every time.Duration, loc *time.Location) (*gocron.Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	_, err := s.Every(every).Do(func() {
		if n, err := l.Sync(ctx); err == nil && n > 0 {
			l.lg.Info("ledger_sync_run", map[string]any{"synced": n})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule ledger sync: %w", err)
	}
	s.StartAsync()
	return s, nil
}
