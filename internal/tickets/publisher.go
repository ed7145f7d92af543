package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/mq"
	"restaurant-pos/internal/domain"
)

type amqpPublisher interface {
	Publish(ctx context.Context, exchange, key, messageID string, body []byte, headers amqp.Table) error
}

// Publisher queues tickets for the printer worker.
type Publisher struct {
	client   amqpPublisher
	terminal string
	timeout  time.Duration
}

func NewPublisher(client amqpPublisher, terminal string) *Publisher {
	return &Publisher{client: client, terminal: terminal, timeout: 5 * time.Second}
}

func RoutingKey(kind domain.TicketKind) string { return "ticket." + string(kind) }

func (p *Publisher) Dispatch(ctx context.Context, t domain.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.client.Publish(ctx, mq.TicketsExchange, RoutingKey(t.Kind), t.ID, body, amqp.Table{
		"x-source":   "pos",
		"x-terminal": p.terminal,
		"x-kind":     string(t.Kind),
	})
}
