// Package events publishes order lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	OrderCreated       EventType = "order.created"
	OrderUpdated       EventType = "order.updated"
	OrderCouponApplied EventType = "order.coupon_applied"
	OrderDeactivated   EventType = "order.deactivated"
	InvoiceCreated     EventType = "invoice.created"
)

// OrderEvent is the message body. Amounts are fixed two-decimal strings.
type OrderEvent struct {
	Type           EventType `json:"type"`
	OrderID        int64     `json:"orderId"`
	UserID         int64     `json:"userId"`
	ShopID         int64     `json:"shopId,omitempty"`
	CouponID       *int64    `json:"couponId,omitempty"`
	InvoiceID      int64     `json:"invoiceId,omitempty"`
	DiscountAmount string    `json:"discountAmount,omitempty"`
	TotalPrice     string    `json:"totalPrice,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// NewOrderEvent snapshots o for publishing.
func NewOrderEvent(typ EventType, o *models.Order) OrderEvent {
	return OrderEvent{
		Type:           typ,
		OrderID:        o.ID,
		UserID:         o.UserID,
		ShopID:         o.ShopID,
		CouponID:       o.CouponID,
		DiscountAmount: o.DiscountAmount.StringFixed(2),
		TotalPrice:     o.TotalPrice.StringFixed(2),
		OccurredAt:     time.Now().UTC(),
	}
}

// Publisher delivers events. Failures are reported, never retried here.
type Publisher interface {
	PublishOrder(ctx context.Context, ev OrderEvent) error
	Close() error
}

// KafkaPublisher writes events to a single topic keyed by order ID.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *KafkaPublisher) PublishOrder(ctx context.Context, ev OrderEvent) error {
	msg, err := newMessage(ev)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %d: %w", ev.Type, ev.OrderID, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// newMessage keys by order so every event of one order lands on the same
// partition.
func newMessage(ev OrderEvent) (kafka.Message, error) {
	v, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.OrderID, 10)),
		Value: v,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}, nil
}

// LogPublisher is used when no brokers are configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishOrder(ctx context.Context, ev OrderEvent) error {
	p.log.InfoContext(ctx, "order event",
		"type", ev.Type,
		"order_id", ev.OrderID,
		"user_id", ev.UserID,
		"total_price", ev.TotalPrice,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
