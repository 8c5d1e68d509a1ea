// Package events publishes purchase notifications for downstream consumers
// (receipt mail, analytics). Publishing is best-effort: the purchase flow
// never fails because an event could not be delivered.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"bindery/pkg/domain"
)

const (
	exchangeName       = "bindery.orders"
	routingKeyPaid     = "order.paid"
	defaultPublishWait = 5 * time.Second
)

// OrderPaid is the wire payload for a completed purchase.
type OrderPaid struct {
	EventID    string    `json:"eventId"`
	OrderID    string    `json:"orderId"`
	BuyerID    string    `json:"buyerId"`
	BookID     string    `json:"bookId"`
	PriceCents int64     `json:"priceCents"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher emits order events.
type Publisher interface {
	PublishOrderPaid(ctx context.Context, order domain.Order) error
	Close() error
}

// NopPublisher drops all events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPaid(context.Context, domain.Order) error { return nil }
func (NopPublisher) Close() error                                         { return nil }

// AMQPPublisher publishes order events to a durable topic exchange.
type AMQPPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("amqp url is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

// PublishOrderPaid emits an order.paid event for the purchase.
func (p *AMQPPublisher) PublishOrderPaid(ctx context.Context, order domain.Order) error {
	evt := OrderPaid{
		EventID:    uuid.NewString(),
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		BookID:     order.BookID,
		PriceCents: order.Receipt.PriceCents,
		OccurredAt: time.Now().UTC(),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPublishWait)
		defer cancel()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, exchangeName, routingKeyPaid, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.EventID,
		Timestamp:    evt.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish order.paid: %w", err)
	}
	return nil
}

// Close shuts down the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
