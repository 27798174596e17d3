// Package pricing computes order item snapshots, coupon discounts and totals.
//
// All amounts are fixed-point with two fractional digits. Nothing here
// touches storage; callers load the order, its items and coupon first and
// persist the result afterwards.
package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/shopspring/decimal"
)

const places = 2

var (
	ErrInvalidCount       = errors.New("count must be greater than zero")
	ErrProductUnavailable = errors.New("product is not available")
	ErrNoItems            = errors.New("order must contain at least one item")
)

var hundred = decimal.NewFromInt(100)

type Engine struct {
	now func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now for coupon window checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Line is one requested (product, count) pair of a new order.
type Line struct {
	Product *models.Product
	Count   int
}

func hasActiveItems(items []models.OrderItem) bool {
	for _, it := range items {
		if it.Lifecycle.IsActive() {
			return true
		}
	}
	return false
}

// ItemsTotal sums row_price over the active items.
func (e *Engine) ItemsTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if !it.Lifecycle.IsActive() {
			continue
		}
		total = total.Add(it.RowPrice)
	}
	return total.Round(places)
}

// Discount is itemsTotal scaled by the coupon percent, or zero when the
// coupon is absent.
func (e *Engine) Discount(itemsTotal decimal.Decimal, c *models.Coupon) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	pct := decimal.NewFromInt(int64(c.DiscountPercent))
	return itemsTotal.Mul(pct).Div(hundred).Round(places)
}

// ComputeTotal sets o.DiscountAmount and o.TotalPrice from o.Items and
// o.Coupon and returns the total. A coupon that is not valid right now
// contributes nothing; the reason is not reported.
func (e *Engine) ComputeTotal(o *models.Order) decimal.Decimal {
	itemsTotal := e.ItemsTotal(o.Items)

	discount := decimal.Zero
	if c := o.Coupon; c != nil {
		held := o.CouponID != nil && *o.CouponID == c.ID
		if checkCoupon(c, e.now(), &itemsTotal, held) == nil {
			discount = e.Discount(itemsTotal, c)
		}
	}

	total := itemsTotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o.DiscountAmount = discount.Round(places)
	o.TotalPrice = total.Round(places)
	return o.TotalPrice
}

// Snapshot turns lines into order items priced at the product's current
// price. Every product must be loaded and active.
func (e *Engine) Snapshot(lines []Line) ([]models.OrderItem, error) {
	if len(lines) == 0 {
		return nil, ErrNoItems
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		if l.Count <= 0 {
			return nil, ErrInvalidCount
		}
		if l.Product == nil {
			return nil, ErrProductUnavailable
		}
		if !l.Product.Lifecycle.IsActive() {
			return nil, fmt.Errorf("product %d: %w", l.Product.ID, ErrProductUnavailable)
		}

		unit := l.Product.Price.Round(places)
		items = append(items, models.OrderItem{
			ProductID: l.Product.ID,
			Count:     l.Count,
			UnitPrice: unit,
			RowPrice:  unit.Mul(decimal.NewFromInt(int64(l.Count))).Round(places),
			Lifecycle: models.Active,
		})
	}
	return items, nil
}

// PriceNewOrder snapshots lines into o.Items and computes the totals.
func (e *Engine) PriceNewOrder(o *models.Order, lines []Line) error {
	items, err := e.Snapshot(lines)
	if err != nil {
		return err
	}
	o.Items = items
	e.ComputeTotal(o)
	return nil
}

// ApplyCoupon attaches c to o after checking it against the current items
// total, then recomputes. Unlike ComputeTotal it reports why c was refused.
func (e *Engine) ApplyCoupon(o *models.Order, c *models.Coupon) error {
	if o.CouponID != nil {
		return ErrCouponAlreadyApplied
	}
	if !hasActiveItems(o.Items) {
		return ErrNoItems
	}

	itemsTotal := e.ItemsTotal(o.Items)
	if err := CheckCoupon(c, e.now(), &itemsTotal); err != nil {
		return err
	}

	id := c.ID
	o.CouponID = &id
	o.Coupon = c
	e.ComputeTotal(o)
	return nil
}

// Reprice changes an item's count and recomputes its row price from the
// unit price captured at creation.
func (e *Engine) Reprice(it *models.OrderItem, count int) error {
	if count <= 0 {
		return ErrInvalidCount
	}
	it.Count = count
	it.RowPrice = it.UnitPrice.Mul(decimal.NewFromInt(int64(count))).Round(places)
	return nil
}
