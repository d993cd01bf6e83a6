package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/kevin07696/clientledger/internal/domain"
	"github.com/kevin07696/clientledger/internal/domain/ports"
	"github.com/kevin07696/clientledger/pkg/resilience"
)

const (
	// DefaultExchange is the topic exchange every payment event goes to
	DefaultExchange = "clientledger.events"

	dialTimeout       = 10 * time.Second
	reconnectAttempts = 3
)

// EventProducer publishes domain events to a durable topic exchange using the
// event type as routing key
type EventProducer struct {
	mu       sync.Mutex
	url      string
	exchange string
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	backoff  resilience.BackoffStrategy
	logger   ports.Logger
}

var _ ports.EventPublisher = (*EventProducer)(nil)

// NewEventProducer dials the broker and declares the exchange
func NewEventProducer(amqpURL, exchange string, logger ports.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	p := &EventProducer{
		url:      cleanURL,
		exchange: exchange,
		backoff:  resilience.BrokerReconnectBackoff(),
		logger:   logger,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if clean == "" {
		return "", errors.New("AMQP URL is empty")
	}
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// redactURL hides the password for logging
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "amqp://<invalid>"
	}
	return u.Redacted()
}

// connect must be called with mu held or before the producer is shared
func (p *EventProducer) connect() error {
	conn, err := amqp091.DialConfig(p.url, amqp091.Config{
		Dial: amqp091.DefaultDial(dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", redactURL(p.url), err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	p.conn = conn
	p.channel = channel
	return nil
}

func (p *EventProducer) reconnect(ctx context.Context) error {
	p.closeLocked()
	return resilience.Retry(ctx, reconnectAttempts, p.backoff, nil, func(context.Context) error {
		return p.connect()
	})
}

// Publish sends the event as JSON. A closed channel is reopened once before
// the error is returned.
func (p *EventProducer) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		if err := p.reconnect(ctx); err != nil {
			return fmt.Errorf("broker unavailable: %w", err)
		}
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg)
	if err == nil {
		return nil
	}
	if !errors.Is(err, amqp091.ErrClosed) {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Warn("amqp channel closed, reconnecting",
		ports.String("exchange", p.exchange),
		ports.Err(err))
	if err := p.reconnect(ctx); err != nil {
		return fmt.Errorf("broker unavailable: %w", err)
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close closes the channel and connection
func (p *EventProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *EventProducer) closeLocked() error {
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
		p.channel = nil
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			errs = append(errs, err)
		}
		p.conn = nil
	}
	return errors.Join(errs...)
}
