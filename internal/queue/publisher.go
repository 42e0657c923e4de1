package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/mehdibennis/cinema/internal/metrics"
)

// Publisher sends events to a durable queue, dialing per publish. Errors are
// logged and returned so callers can ignore them without failing requests.
type Publisher struct {
	url     string
	queue   string
	timeout time.Duration
	log     zerolog.Logger
}

func NewPublisher(url, queue string, log zerolog.Logger) *Publisher {
	return &Publisher{url: url, queue: queue, timeout: 3 * time.Second, log: log}
}

// Publish declares the queue (idempotent) and sends ev as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev Event) (err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			p.log.Warn().Err(err).Str("type", ev.Type).Str("event_id", ev.ID).Msg("event publish failed")
		}
		metrics.EventsPublished.WithLabelValues(ev.Type, outcome).Inc()
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.timeout)})
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
}

// NopPublisher drops events; used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
