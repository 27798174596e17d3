package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type DeliveryInput struct {
	OrderID int64                 `json:"orderId" binding:"required,gt=0"`
	Method  models.DeliveryMethod `json:"method" binding:"required,oneof=TPOX POST"`
}

// ListDeliveries is the handler for GET /v1/deliveries
// Admins see every delivery, everyone else those of their own orders.
func (h *Handlers) ListDeliveries(c *gin.Context) {
	ctx := c.Request.Context()
	deliveries, err := h.Store.ListDeliveries(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	caller := middleware.IdentityFrom(c)
	if !permissions.IsAdmin(caller) {
		orders, err := h.Store.ListOrders(ctx, store.OrderFilter{UserID: caller.UserID})
		if err != nil {
			h.respondError(c, err)
			return
		}
		mine := lo.SliceToMap(orders, func(o models.Order) (int64, bool) { return o.ID, true })
		deliveries = lo.Filter(deliveries, func(d models.Delivery, _ int) bool { return mine[d.OrderID] })
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": deliveries})
}

// GetDelivery is the handler for GET /v1/deliveries/:id
func (h *Handlers) GetDelivery(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	d, err := h.Store.GetDelivery(ctx, id)
	if err != nil {
		h.respondError(c, notFound(err, "Delivery"))
		return
	}
	if d.Order, err = h.Store.GetOrder(ctx, d.OrderID); err != nil {
		h.respondError(c, notFound(err, "Delivery"))
		return
	}
	if err := h.authorize(c, d, "delivery"); err != nil {
		h.respondError(c, err)
		return
	}
	if !visible(c, d.Lifecycle) {
		h.respondError(c, apperrors.NotFound("Delivery"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery": d})
}

// CreateDelivery is the handler for POST /v1/deliveries (admin only).
func (h *Handlers) CreateDelivery(c *gin.Context) {
	var input DeliveryInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	o, err := h.Store.GetOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperrors.Wrap(apperrors.FieldError("orderId", "Order does not exist."), err)
		}
		h.respondError(c, err)
		return
	}
	if !o.Lifecycle.IsActive() {
		h.respondError(c, apperrors.FieldError("orderId", "Order does not exist."))
		return
	}

	d := &models.Delivery{OrderID: o.ID, Method: input.Method}
	if err := h.Store.CreateDelivery(ctx, d); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"delivery": d})
}

// DeactivateDelivery is the handler for DELETE /v1/deliveries/:id (admin only).
func (h *Handlers) DeactivateDelivery(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeactivateDelivery(c.Request.Context(), id); err != nil {
		h.respondError(c, notFound(err, "Delivery"))
		return
	}
	c.Status(http.StatusNoContent)
}
