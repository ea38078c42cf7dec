// Package notify publishes customer notification events to RabbitMQ.
// Delivery is best-effort: the ledger never waits on, or fails with, the
// broker. When no broker is configured the no-op publisher is used.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/pesaflow/pesaflow-backend/internal/models"
)

const (
	exchange   = "pesaflow.notifications"
	routingKey = "notifications.sms"
)

// Event is the payload consumed by the SMS/app delivery workers.
type Event struct {
	UserID        string                  `json:"user_id"`
	Type          models.NotificationType `json:"notification_type"`
	Title         string                  `json:"title"`
	Message       string                  `json:"message"`
	TransactionID string                  `json:"transaction_id,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

type amqpPublisher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewPublisher connects to the broker and declares the notification
// exchange. Callers fall back to NewNoop when this fails at startup.
func NewPublisher(url string) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &amqpPublisher{conn: conn, channel: ch}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   ev.Timestamp,
		Body:        body,
	})
}

func (p *amqpPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

type noopPublisher struct{}

// NewNoop returns a publisher that only logs. Used when AMQP_URL is unset
// or the broker is down at startup.
func NewNoop() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(_ context.Context, ev Event) error {
	slog.Warn("notification publish skipped", "user_id", ev.UserID, "title", ev.Title)
	return nil
}

func (noopPublisher) Close() {}
