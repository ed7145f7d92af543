package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/printer/repository"
	"restaurant-pos/internal/tickets"
)

var (
	ErrRequeue        = errors.New("requeue")     // nack(requeue=true)
	ErrDLQ            = errors.New("dead_letter") // nack(requeue=false)
	ErrConsumerClosed = errors.New("ticket consumer closed by broker")
)

// Consumer opens a dedicated consume channel on the ticket queue.
type Consumer interface {
	Consume(queue, consumer string, prefetch int) (mq.Subscription, <-chan amqp.Delivery, error)
}

type PrinterServiceInterface interface {
	Run(ctx context.Context) error
	Handle(ctx context.Context, body []byte) error
}

type Config struct {
	WorkerName string
	SinkName   string
	Queue      string
	Prefetch   int
	BeatEvery  time.Duration
}

type PrinterService struct {
	repo     repository.PrinterRepositoryInterface
	dedupe   repository.DedupeInterface
	consumer Consumer
	renderer *tickets.Renderer
	sink     tickets.Sink
	lg       *logger.Logger
	cfg      Config
}

func NewPrinterService(repo *repository.Repository, consumer Consumer, r *tickets.Renderer, sink tickets.Sink, cfg Config, lg *logger.Logger) *PrinterService {
	if cfg.Queue == "" {
		cfg.Queue = mq.TicketsQueue
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.BeatEvery <= 0 {
		cfg.BeatEvery = 30 * time.Second
	}
	if lg == nil {
		lg = logger.Nop()
	}
	return &PrinterService{
		repo: repo.PrinterRepo, dedupe: repo.Dedupe, consumer: consumer,
		renderer: r, sink: sink, lg: lg, cfg: cfg,
	}
}

func (s *PrinterService) Run(ctx context.Context) error {
	if strings.TrimSpace(s.cfg.WorkerName) == "" {
		return fmt.Errorf("worker name is empty: pass --worker-name")
	}

	if _, err := s.repo.RegisterOrFail(ctx, s.cfg.WorkerName, s.cfg.SinkName); err != nil {
		s.lg.Error("worker_registration_failed", err, map[string]any{"worker": s.cfg.WorkerName})
		return err
	}
	s.lg.Info("worker_registered", map[string]any{"worker": s.cfg.WorkerName, "sink": s.cfg.SinkName})

	sub, msgs, err := s.consumer.Consume(s.cfg.Queue, s.cfg.WorkerName, s.cfg.Prefetch)
	if err != nil {
		_ = s.repo.SetOffline(context.Background(), s.cfg.WorkerName)
		return fmt.Errorf("consume %s: %w", s.cfg.Queue, err)
	}
	defer sub.Close()

	closeCh := sub.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if e, ok := <-closeCh; ok && e != nil {
			s.lg.Error("amqp_channel_closed", e, map[string]any{"code": e.Code})
		}
	}()

	beatCtx, stopBeat := context.WithCancel(ctx)
	defer stopBeat()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(s.cfg.BeatEvery)
		defer t.Stop()
		for {
			select {
			case <-beatCtx.Done():
				return
			case <-t.C:
				if err := s.repo.Heartbeat(context.Background(), s.cfg.WorkerName); err == nil {
					s.lg.Debug("heartbeat_sent", map[string]any{"worker": s.cfg.WorkerName})
				}
			}
		}
	}()

	s.lg.Info("consuming", map[string]any{"queue": s.cfg.Queue, "prefetch": s.cfg.Prefetch, "worker": s.cfg.WorkerName})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for d := range msgs {
			s.settle(d, s.Handle(ctx, d.Body))
		}
	}()

	// A delivery stream that ends on its own means the broker dropped the
	// consumer. The worker goes offline and exits so a supervisor restarts it.
	var runErr error
	select {
	case <-ctx.Done():
		s.lg.Info("graceful_shutdown", map[string]any{"worker": s.cfg.WorkerName})
		_ = sub.Cancel(s.cfg.WorkerName, false)
		<-done
	case <-done:
		runErr = ErrConsumerClosed
		s.lg.Error("consumer_closed", runErr, map[string]any{"worker": s.cfg.WorkerName, "queue": s.cfg.Queue})
	}

	stopBeat()
	wg.Wait()
	_ = s.repo.SetOffline(context.Background(), s.cfg.WorkerName)
	return runErr
}

func (s *PrinterService) settle(d amqp.Delivery, err error) {
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrDLQ):
		_ = d.Nack(false, false)
	default:
		_ = d.Nack(false, true)
	}
}

// Handle prints one queued ticket. Payloads that can never print go to the
// dead-letter queue; sink failures are retried by redelivery.
func (s *PrinterService) Handle(ctx context.Context, body []byte) error {
	var t domain.Ticket
	if err := json.Unmarshal(body, &t); err != nil {
		s.lg.Error("ticket_malformed", err, nil)
		return ErrDLQ
	}
	if t.ID == "" || t.Kind == "" {
		s.lg.Warn("ticket_incomplete", map[string]any{"ticket_id": t.ID, "kind": string(t.Kind)})
		return ErrDLQ
	}

	fresh, err := s.dedupe.Claim(ctx, t.ID)
	if err != nil {
		s.lg.Error("dedupe_unavailable", err, map[string]any{"ticket_id": t.ID})
		fresh = true
	}
	if !fresh {
		s.lg.Debug("ticket_already_printed", map[string]any{"ticket_id": t.ID})
		return nil
	}

	if err := s.sink.Print(ctx, t.Kind, s.renderer.Render(t)); err != nil {
		_ = s.dedupe.Release(context.Background(), t.ID)
		metrics.TicketFailures.WithLabelValues(string(t.Kind)).Inc()
		s.lg.Error("ticket_print_failed", err, map[string]any{"ticket_id": t.ID, "kind": string(t.Kind)})
		return fmt.Errorf("%w: %v", ErrRequeue, err)
	}
	metrics.TicketsPrinted.WithLabelValues(string(t.Kind)).Inc()
	_ = s.repo.MarkPrinted(ctx, s.cfg.WorkerName)
	s.lg.Info("ticket_printed", map[string]any{"ticket_id": t.ID, "kind": string(t.Kind), "origin": t.OriginName})
	return nil
}
