package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() *models.Order {
	couponID := int64(4)
	return &models.Order{
		ID:             21,
		UserID:         3,
		ShopID:         9,
		CouponID:       &couponID,
		DiscountAmount: decimal.RequireFromString("12.5"),
		TotalPrice:     decimal.RequireFromString("112.5"),
	}
}

func TestNewMessage(t *testing.T) {
	ev := NewOrderEvent(OrderCouponApplied, sampleOrder())

	msg, err := newMessage(ev)
	require.NoError(t, err)
	assert.Equal(t, "21", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "order.coupon_applied", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "112.50", decoded["totalPrice"])
	assert.Equal(t, "12.50", decoded["discountAmount"])
	assert.Equal(t, float64(4), decoded["couponId"])
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, p.PublishOrder(context.Background(), NewOrderEvent(OrderCreated, sampleOrder())))
	assert.Contains(t, buf.String(), "type=order.created")
	assert.Contains(t, buf.String(), "order_id=21")
	assert.NoError(t, p.Close())
}
