package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/corvusHold/certmail/internal/events/domain"
)

// ExchangeName is the durable topic exchange events are published to. The event
// type is the routing key.
const ExchangeName = "events"

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes events as persistent JSON messages.
type AMQP struct {
	conn *amqp.Connection
	ch   channel
}

type wireEvent struct {
	Type      string            `json:"type"`
	AccountID string            `json:"account_id"`
	Meta      map[string]string `json:"meta,omitempty"`
	Time      time.Time         `json:"time"`
}

// NewAMQP dials url, opens a channel and declares the events exchange.
func NewAMQP(url string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQP{conn: conn, ch: ch}, nil
}

func (p *AMQP) Publish(ctx context.Context, e domain.Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	body, err := json.Marshal(wireEvent{Type: e.Type, AccountID: e.AccountID.String(), Meta: e.Meta, Time: e.Time})
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, ExchangeName, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.Time,
	})
}

// IsConnected reports whether the underlying connection is still open.
func (p *AMQP) IsConnected() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

func (p *AMQP) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
