package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/events"
	"github.com/01moynul/bazaar-golang/internal/metrics"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/pricing"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- Inputs ---

type OrderLineInput struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Count     int   `json:"count" binding:"required,gt=0"`
}

type CreateOrderInput struct {
	ShopID     int64            `json:"shopId" binding:"required,gt=0"`
	AddressID  int64            `json:"addressId" binding:"required,gt=0"`
	Items      []OrderLineInput `json:"items" binding:"required,min=1,dive"`
	CouponCode string           `json:"couponCode" binding:"omitempty,max=64"`
}

type UpdateOrderInput struct {
	AddressID *int64           `json:"addressId" binding:"omitempty,gt=0"`
	Items     []OrderLineInput `json:"items" binding:"omitempty,min=1,dive"`
}

type ApplyCouponInput struct {
	Code string `json:"code" binding:"required,max=64"`
}

type OrderItemInput struct {
	Count int `json:"count" binding:"required,gt=0"`
}

//
// --- Helpers ---
//

// orderLines resolves the requested products. Each must exist and belong
// to shopID; the pricing engine rejects deactivated ones.
func (h *Handlers) orderLines(c *gin.Context, shopID int64, in []OrderLineInput) ([]pricing.Line, error) {
	ids := lo.Uniq(lo.Map(in, func(l OrderLineInput, _ int) int64 { return l.ProductID }))
	products, err := h.Store.GetProductsByIDs(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(in))
	for _, l := range in {
		p, ok := products[l.ProductID]
		if !ok || p.ShopID != shopID {
			return nil, apperrors.FieldError("items", fmt.Sprintf("Product %d is not sold by this shop.", l.ProductID))
		}
		lines = append(lines, pricing.Line{Product: p, Count: l.Count})
	}
	return lines, nil
}

// couponByCode looks up a code, counting unknown codes.
func (h *Handlers) couponByCode(c *gin.Context, code string) (*models.Coupon, error) {
	coupon, err := h.Store.GetCouponByCode(c.Request.Context(), strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, store.ErrNotFound) {
		h.Metrics.RecordCoupon(metrics.CouponUnknown, decimal.Zero)
		return nil, apperrors.Wrap(apperrors.FieldError("code", "Coupon code does not exist."), err)
	}
	return coupon, err
}

// couponStoreResult labels a failed redemption write.
func couponStoreResult(err error) string {
	if errors.Is(err, store.ErrCouponExhausted) || errors.Is(err, store.ErrConflict) {
		return metrics.CouponRaceLost
	}
	return ""
}

// loadOwnedOrder loads :id for an owner or admin. Deactivated orders are
// only readable when allowInactive is set.
func (h *Handlers) loadOwnedOrder(c *gin.Context, allowInactive bool) (*models.Order, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	o, err := h.Store.GetOrder(c.Request.Context(), id)
	if err != nil {
		return nil, notFound(err, "Order")
	}
	if err := h.authorize(c, o, "order"); err != nil {
		return nil, err
	}
	if !o.Lifecycle.IsActive() && !(allowInactive && visible(c, o.Lifecycle)) {
		return nil, apperrors.NotFound("Order")
	}
	return o, nil
}

//
// --- Orders ---
//

// ListOrders is the handler for GET /v1/orders (admin only).
func (h *Handlers) ListOrders(c *gin.Context) {
	orders, err := h.Store.ListOrders(c.Request.Context(), store.OrderFilter{})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ListMyOrders is the handler for GET /v1/orders/mine
func (h *Handlers) ListMyOrders(c *gin.Context) {
	orders, err := h.Store.ListOrders(c.Request.Context(), store.OrderFilter{UserID: middleware.IdentityFrom(c).UserID})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder is the handler for GET /v1/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	o, err := h.loadOwnedOrder(c, true)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

// CreateOrder is the handler for POST /v1/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	// 1. --- Bind & Validate ---
	var input CreateOrderInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := middleware.IdentityFrom(c)

	// 2. --- Shop must be approved and active ---
	shop, err := h.Store.GetShop(ctx, input.ShopID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperrors.Wrap(apperrors.FieldError("shopId", "Shop does not exist."), err)
		}
		h.respondError(c, err)
		return
	}
	if !shop.AcceptsOrders() {
		h.respondError(c, apperrors.FieldError("shopId", "Shop is not accepting orders."))
		return
	}

	// 3. --- Address must be the caller's ---
	addr, err := h.Store.GetAddress(ctx, input.AddressID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.respondError(c, err)
		return
	}
	if addr == nil || addr.UserID != caller.UserID || !addr.Lifecycle.IsActive() {
		h.respondError(c, apperrors.FieldError("addressId", "Address does not exist."))
		return
	}

	// 4. --- Snapshot prices ---
	lines, err := h.orderLines(c, shop.ID, input.Items)
	if err != nil {
		h.respondError(c, err)
		return
	}
	o := &models.Order{UserID: caller.UserID, ShopID: shop.ID, AddressID: addr.ID}
	if err := h.Pricing.PriceNewOrder(o, lines); err != nil {
		h.respondError(c, err)
		return
	}

	// 5. --- Optional coupon, checked explicitly ---
	if input.CouponCode != "" {
		coupon, err := h.couponByCode(c, input.CouponCode)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if err := h.Pricing.ApplyCoupon(o, coupon); err != nil {
			h.Metrics.RecordCoupon(metrics.CouponRejected, decimal.Zero)
			h.respondError(c, err)
			return
		}
	}

	// 6. --- Save (redeems the coupon in the same transaction) ---
	if err := h.Store.CreateOrder(ctx, o); err != nil {
		if result := couponStoreResult(err); result != "" {
			h.Metrics.RecordCoupon(result, decimal.Zero)
		}
		h.respondError(c, err)
		return
	}
	if o.CouponID != nil {
		h.Metrics.RecordCoupon(metrics.CouponApplied, decimal.Zero)
	}
	h.Metrics.RecordOrderCreated(o.TotalPrice, o.DiscountAmount)
	h.publish(ctx, events.NewOrderEvent(events.OrderCreated, o))

	h.Log.InfoContext(ctx, "order created",
		"order_id", o.ID, "user_id", o.UserID, "total", o.TotalPrice.StringFixed(2))
	c.JSON(http.StatusCreated, gin.H{"order": o})
}

// UpdateOrder is the handler for PUT /v1/orders/:id
// An attached coupon that no longer applies is dropped from the total silently.
func (h *Handlers) UpdateOrder(c *gin.Context) {
	o, err := h.loadOwnedOrder(c, false)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input UpdateOrderInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	if input.AddressID != nil && *input.AddressID != o.AddressID {
		addr, err := h.Store.GetAddress(ctx, *input.AddressID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.respondError(c, err)
			return
		}
		if addr == nil || addr.UserID != o.UserID || !addr.Lifecycle.IsActive() {
			h.respondError(c, apperrors.FieldError("addressId", "Address does not exist."))
			return
		}
		o.AddressID = addr.ID
	}

	replace := len(input.Items) > 0
	if replace {
		lines, err := h.orderLines(c, o.ShopID, input.Items)
		if err != nil {
			h.respondError(c, err)
			return
		}
		items, err := h.Pricing.Snapshot(lines)
		if err != nil {
			h.respondError(c, err)
			return
		}
		o.Items = items
	}

	h.Pricing.ComputeTotal(o)
	if err := h.Store.UpdateOrder(ctx, o, replace); err != nil {
		h.respondError(c, notFound(err, "Order"))
		return
	}
	h.publish(ctx, events.NewOrderEvent(events.OrderUpdated, o))
	c.JSON(http.StatusOK, gin.H{"order": o})
}

// DeactivateOrder is the handler for DELETE /v1/orders/:id
func (h *Handlers) DeactivateOrder(c *gin.Context) {
	o, err := h.loadOwnedOrder(c, false)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.Store.DeactivateOrder(ctx, o.ID); err != nil {
		h.respondError(c, notFound(err, "Order"))
		return
	}
	o.Lifecycle = models.Deactivated
	h.Metrics.OrdersDeactivatedTotal.Inc()
	h.publish(ctx, events.NewOrderEvent(events.OrderDeactivated, o))
	c.Status(http.StatusNoContent)
}

// ApplyCoupon is the handler for POST /v1/orders/:id/apply-coupon
func (h *Handlers) ApplyCoupon(c *gin.Context) {
	o, err := h.loadOwnedOrder(c, false)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input ApplyCouponInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	coupon, err := h.couponByCode(c, input.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Pricing.ApplyCoupon(o, coupon); err != nil {
		h.Metrics.RecordCoupon(metrics.CouponRejected, decimal.Zero)
		h.respondError(c, err)
		return
	}
	if err := h.Store.AttachCoupon(ctx, o); err != nil {
		if result := couponStoreResult(err); result != "" {
			h.Metrics.RecordCoupon(result, decimal.Zero)
		}
		h.respondError(c, err)
		return
	}

	h.Metrics.RecordCoupon(metrics.CouponApplied, o.DiscountAmount)
	h.publish(ctx, events.NewOrderEvent(events.OrderCouponApplied, o))
	c.JSON(http.StatusOK, gin.H{"order": o})
}

//
// --- Order items ---
//

// ListOrderItems is the handler for GET /v1/order-items (admin only).
func (h *Handlers) ListOrderItems(c *gin.Context) {
	items, err := h.Store.ListOrderItems(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderItems": items})
}

// loadOwnedItem loads :id together with its order; access follows the order.
func (h *Handlers) loadOwnedItem(c *gin.Context) (*models.OrderItem, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	ctx := c.Request.Context()
	it, err := h.Store.GetOrderItem(ctx, id)
	if err != nil {
		return nil, notFound(err, "Order item")
	}
	if it.Order, err = h.Store.GetOrder(ctx, it.OrderID); err != nil {
		return nil, notFound(err, "Order item")
	}
	if err := h.authorize(c, it, "order_item"); err != nil {
		return nil, err
	}
	return it, nil
}

// writableItem narrows loadOwnedItem to items that may still change.
func (h *Handlers) writableItem(c *gin.Context) (*models.OrderItem, error) {
	it, err := h.loadOwnedItem(c)
	if err != nil {
		return nil, err
	}
	if !it.Lifecycle.IsActive() || !it.Order.Lifecycle.IsActive() {
		return nil, apperrors.NotFound("Order item")
	}
	return it, nil
}

// saveItem writes it back into its order, reprices the order and persists both.
func (h *Handlers) saveItem(c *gin.Context, it *models.OrderItem) error {
	o := it.Order
	for i := range o.Items {
		if o.Items[i].ID == it.ID {
			o.Items[i] = *it
		}
	}
	h.Pricing.ComputeTotal(o)
	if err := h.Store.SaveOrderItem(c.Request.Context(), it, o); err != nil {
		return notFound(err, "Order item")
	}
	h.publish(c.Request.Context(), events.NewOrderEvent(events.OrderUpdated, o))
	return nil
}

// GetOrderItem is the handler for GET /v1/order-items/:id
func (h *Handlers) GetOrderItem(c *gin.Context) {
	it, err := h.loadOwnedItem(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !visible(c, it.Lifecycle) {
		h.respondError(c, apperrors.NotFound("Order item"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderItem": it})
}

// UpdateOrderItem is the handler for PUT /v1/order-items/:id
// Only count can change; the unit price stays at its snapshot.
func (h *Handlers) UpdateOrderItem(c *gin.Context) {
	it, err := h.writableItem(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input OrderItemInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Pricing.Reprice(it, input.Count); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.saveItem(c, it); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderItem": it, "order": it.Order})
}

// DeactivateOrderItem is the handler for DELETE /v1/order-items/:id
func (h *Handlers) DeactivateOrderItem(c *gin.Context) {
	it, err := h.writableItem(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if it.Lifecycle, err = it.Lifecycle.Deactivate(); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.saveItem(c, it); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
