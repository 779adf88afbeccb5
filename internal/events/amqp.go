package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

var ErrPublisherClosed = errors.New("event publisher closed")

// Publisher sends events to a RabbitMQ topic exchange with the event type
// (e.g. "ride.accepted") as routing key.
type Publisher struct {
	url      string
	exchange string
	logger   *slog.Logger

	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// Dial connects to url, retrying up to attempts times, and declares exchange
// as a durable topic exchange.
func Dial(ctx context.Context, url, exchange string, attempts int, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange, logger: logger}

	delay := time.Second
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = p.connect(); err == nil {
			logger.InfoContext(ctx, "rabbitmq connected", "exchange", exchange, "attempt", attempt)
			return p, nil
		}
		logger.WarnContext(ctx, "rabbitmq connection failed", "attempt", attempt, "error", err)
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = min(delay*3/2, 30*time.Second)
		}
	}
	return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", attempts, err)
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	p.mu.Lock()
	p.conn, p.ch = conn, ch
	p.mu.Unlock()
	return nil
}

// Publish encodes e as JSON and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	p.mu.RLock()
	ch, closed := p.ch, p.closed
	p.mu.RUnlock()
	if closed || ch == nil {
		return ErrPublisherClosed
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.RideID + ":" + e.Type,
		Timestamp:    e.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.logger.Info("rabbitmq connection closed")
}
