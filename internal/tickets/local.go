package tickets

import (
	"context"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/common/metrics"
	"restaurant-pos/internal/domain"
)

// LocalDispatcher renders and prints in-process, for terminals that run
// without a broker.
type LocalDispatcher struct {
	renderer *Renderer
	sink     Sink
	lg       *logger.Logger
}

func NewLocalDispatcher(r *Renderer, sink Sink, lg *logger.Logger) *LocalDispatcher {
	if lg == nil {
		lg = logger.Nop()
	}
	return &LocalDispatcher{renderer: r, sink: sink, lg: lg}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, t domain.Ticket) error {
	if err := d.sink.Print(ctx, t.Kind, d.renderer.Render(t)); err != nil {
		return err
	}
	metrics.TicketsPrinted.WithLabelValues(string(t.Kind)).Inc()
	d.lg.Debug("ticket_printed", map[string]any{"ticket_id": t.ID, "kind": string(t.Kind), "order_id": t.OrderID})
	return nil
}
