package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Coupon application outcomes used as the "result" label.
const (
	CouponApplied  = "applied"
	CouponRejected = "rejected"
	CouponUnknown  = "unknown_code"
	CouponRaceLost = "race_lost"
)

// ShopMetrics holds the business counters exported on /metrics.
type ShopMetrics struct {
	// Orders
	OrdersCreatedTotal       prometheus.Counter
	OrdersCreatedAmountTotal prometheus.Counter
	OrderDiscountAmountTotal prometheus.Counter
	OrdersDeactivatedTotal   prometheus.Counter

	// Coupons
	CouponApplicationsTotal *prometheus.CounterVec

	// Permissions
	AuthorizationDeniedTotal *prometheus.CounterVec

	// Invoices
	InvoicesCreatedTotal prometheus.Counter
	InvoicesOverdueTotal prometheus.Counter

	// HTTP
	RequestDuration *prometheus.HistogramVec
}

// NewShopMetrics registers every collector on reg.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	f := promauto.With(reg)
	return &ShopMetrics{
		OrdersCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Number of orders created",
		}),
		OrdersCreatedAmountTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_amount_total",
			Help: "Sum of total_price over created orders",
		}),
		OrderDiscountAmountTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "order_discount_amount_total",
			Help: "Sum of coupon discounts granted",
		}),
		OrdersDeactivatedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_deactivated_total",
			Help: "Number of orders deactivated",
		}),
		CouponApplicationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coupon_applications_total",
			Help: "Coupon application attempts by outcome",
		}, []string{"result"}),
		AuthorizationDeniedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "authorization_denied_total",
			Help: "Object permission checks that were refused, by entity",
		}, []string{"entity"}),
		InvoicesCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "invoices_created_total",
			Help: "Number of invoices issued",
		}),
		InvoicesOverdueTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "invoices_overdue_total",
			Help: "Invoices moved to OVERDUE by the sweeper",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route", "status"}),
	}
}

// RecordOrderCreated counts a new order and its amounts.
func (m *ShopMetrics) RecordOrderCreated(total, discount decimal.Decimal) {
	m.OrdersCreatedTotal.Inc()
	m.OrdersCreatedAmountTotal.Add(total.InexactFloat64())
	if discount.IsPositive() {
		m.OrderDiscountAmountTotal.Add(discount.InexactFloat64())
	}
}

func (m *ShopMetrics) RecordCoupon(result string, discount decimal.Decimal) {
	m.CouponApplicationsTotal.WithLabelValues(result).Inc()
	if result == CouponApplied && discount.IsPositive() {
		m.OrderDiscountAmountTotal.Add(discount.InexactFloat64())
	}
}

func (m *ShopMetrics) RecordDenied(entity string) {
	m.AuthorizationDeniedTotal.WithLabelValues(entity).Inc()
}
