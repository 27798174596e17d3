package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/auth"
	"github.com/01moynul/bazaar-golang/internal/events"
	"github.com/01moynul/bazaar-golang/internal/metrics"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/01moynul/bazaar-golang/internal/pricing"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Store   store.Store
	Pricing *pricing.Engine
	Tokens  *auth.TokenManager
	Events  events.Publisher
	Metrics *metrics.ShopMetrics
	Log     *slog.Logger
	Now     func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// paramID reads a positive integer path parameter.
func paramID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.FieldError(name, "Must be a positive integer.")
	}
	return id, nil
}

// authorize runs the object permission check for the caller and counts
// refusals per entity.
func (h *Handlers) authorize(c *gin.Context, target permissions.Ownable, entity string) error {
	if permissions.Authorize(middleware.IdentityFrom(c), target) {
		return nil
	}
	h.Metrics.RecordDenied(entity)
	return apperrors.Forbidden("")
}

// visible hides deactivated rows from everyone but admins.
func visible(c *gin.Context, l models.Lifecycle) bool {
	return l.IsActive() || permissions.IsAdmin(middleware.IdentityFrom(c))
}

// publish sends an order event; delivery failures are logged only.
func (h *Handlers) publish(ctx context.Context, ev events.OrderEvent) {
	if err := h.Events.PublishOrder(ctx, ev); err != nil {
		h.Log.WarnContext(ctx, "failed to publish event", "type", ev.Type, "order_id", ev.OrderID, "error", err)
	}
}
