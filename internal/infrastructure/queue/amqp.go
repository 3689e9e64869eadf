package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	amqp "github.com/rabbitmq/amqp091-go"

	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// Publisher emits pass outcomes to a durable AMQP queue.
type Publisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *slog.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher dials the broker and declares the outcome queue.
func NewPublisher(rawURL, queue string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("queue connect", "url", redactURL(rawURL), "queue", queue)

	conn, err := amqp.Dial(rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &Publisher{conn: conn, ch: ch, queue: queue, logger: logger}, nil
}

// PublishOutcome sends the outcome as a persistent JSON message.
func (p *Publisher) PublishOutcome(ctx context.Context, outcome domain.Outcome) error {
	msg, err := buildMessage(outcome)
	if err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish outcome: %w", err)
	}
	p.logger.Debug("queue publish", "queue", p.queue, "kind", outcome.Kind, "bytes", len(msg.Body))
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func buildMessage(outcome domain.Outcome) (amqp.Publishing, error) {
	body, err := json.Marshal(outcome)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode outcome: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    outcome.RunID,
		Timestamp:    outcome.FinishedAt,
		Type:         string(outcome.Kind),
		Body:         body,
	}, nil
}

func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	if parsed.User == nil {
		return parsed.String()
	}
	username := parsed.User.Username()
	if _, hasPassword := parsed.User.Password(); hasPassword {
		parsed.User = url.UserPassword(username, "REDACTED")
	} else {
		parsed.User = url.User(username)
	}
	return parsed.String()
}
