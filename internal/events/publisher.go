// Package events publishes order lifecycle notifications over NATS so
// downstream consumers (email, fulfillment, analytics) can react without
// coupling to the request path. Publishing is best-effort: a failed publish
// is logged, never surfaced to the customer.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/tmcewen/vanir/internal/domain"
)

// Subjects for order lifecycle events.
const (
	SubjectOrderCreated   = "order.created"
	SubjectOrderCancelled = "order.cancelled"
)

// OrderEvent is the payload published on order lifecycle subjects.
type OrderEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      uuid.UUID `json:"userId"`
	Status      string    `json:"status"`
	TotalCents  int64     `json:"total"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Publisher emits order lifecycle events.
type Publisher interface {
	OrderCreated(order *domain.Order)
	OrderCancelled(order *domain.Order)
}

// NATSPublisher publishes events to a NATS server.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("vanir"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Close drains the connection, flushing pending publishes.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain nats connection", "error", err)
	}
}

func (p *NATSPublisher) publish(subject string, order *domain.Order) {
	event := OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalCents:  order.TotalCents,
		OccurredAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode order event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish order event",
			"subject", subject,
			"order_number", order.OrderNumber,
			"error", err)
		return
	}

	p.logger.Debug("published order event", "subject", subject, "order_number", order.OrderNumber)
}

func (p *NATSPublisher) OrderCreated(order *domain.Order) {
	p.publish(SubjectOrderCreated, order)
}

func (p *NATSPublisher) OrderCancelled(order *domain.Order) {
	p.publish(SubjectOrderCancelled, order)
}

// NoopPublisher discards events. Used when no NATS URL is configured and in
// tests.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) OrderCreated(*domain.Order)   {}
func (NoopPublisher) OrderCancelled(*domain.Order) {}
