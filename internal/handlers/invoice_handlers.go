package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/events"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type CreateInvoiceInput struct {
	OrderID int64     `json:"orderId" binding:"required,gt=0"`
	DueDate time.Time `json:"dueDate" binding:"required"`
}

type InvoiceStatusInput struct {
	PaymentStatus models.PaymentStatus `json:"paymentStatus" binding:"required,oneof=PENDING PAID OVERDUE"`
}

// invoiceItems copies the active order item snapshots.
func invoiceItems(o *models.Order) []models.InvoiceItem {
	active := lo.Filter(o.Items, func(it models.OrderItem, _ int) bool { return it.Lifecycle.IsActive() })
	return lo.Map(active, func(it models.OrderItem, _ int) models.InvoiceItem {
		return models.InvoiceItem{
			ProductID: it.ProductID,
			Quantity:  it.Count,
			UnitPrice: it.UnitPrice,
			RowTotal:  it.RowPrice,
		}
	})
}

// CreateInvoiceFromOrder is the handler for POST /v1/invoices/create-from-order (admin only).
func (h *Handlers) CreateInvoiceFromOrder(c *gin.Context) {
	var input CreateInvoiceInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	now := h.now().UTC()
	if !input.DueDate.After(now) {
		h.respondError(c, apperrors.FieldError("dueDate", "Due date must be in the future."))
		return
	}
	ctx := c.Request.Context()

	o, err := h.Store.GetOrder(ctx, input.OrderID)
	if err != nil {
		h.respondError(c, notFound(err, "Order"))
		return
	}
	if !o.Lifecycle.IsActive() {
		h.respondError(c, apperrors.NotFound("Order"))
		return
	}

	inv := &models.Invoice{
		InvoiceNumber: uuid.NewString(),
		OrderID:       o.ID,
		UserID:        o.UserID,
		IssueDate:     now,
		DueDate:       input.DueDate,
		TotalAmount:   o.TotalPrice,
		PaymentStatus: models.PaymentPending,
		Items:         invoiceItems(o),
	}
	if err := h.Store.CreateInvoice(ctx, inv); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			err = apperrors.Wrap(apperrors.Conflict("Order has already been invoiced"), err)
		}
		h.respondError(c, err)
		return
	}

	h.Metrics.InvoicesCreatedTotal.Inc()
	ev := events.NewOrderEvent(events.InvoiceCreated, o)
	ev.InvoiceID = inv.ID
	h.publish(ctx, ev)
	c.JSON(http.StatusCreated, gin.H{"invoice": inv})
}

// ListInvoices is the handler for GET /v1/invoices
// Admins see every invoice, everyone else their own.
func (h *Handlers) ListInvoices(c *gin.Context) {
	var f store.InvoiceFilter
	if caller := middleware.IdentityFrom(c); !permissions.IsAdmin(caller) {
		f.UserID = caller.UserID
	}
	invoices, err := h.Store.ListInvoices(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *Handlers) loadOwnedInvoice(c *gin.Context) (*models.Invoice, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	inv, err := h.Store.GetInvoice(c.Request.Context(), id)
	if err != nil {
		return nil, notFound(err, "Invoice")
	}
	if err := h.authorize(c, inv, "invoice"); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInvoice is the handler for GET /v1/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	inv, err := h.loadOwnedInvoice(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// UpdateInvoiceStatus is the handler for PATCH /v1/invoices/:id (admin only).
func (h *Handlers) UpdateInvoiceStatus(c *gin.Context) {
	inv, err := h.loadOwnedInvoice(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input InvoiceStatusInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.UpdateInvoiceStatus(c.Request.Context(), inv.ID, input.PaymentStatus); err != nil {
		h.respondError(c, notFound(err, "Invoice"))
		return
	}
	inv.PaymentStatus = input.PaymentStatus
	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

// ProcessOverdueInvoices moves PENDING invoices past their due date to
// OVERDUE. It is run periodically from main.
func (h *Handlers) ProcessOverdueInvoices(ctx context.Context) {
	n, err := h.Store.MarkOverdueInvoices(ctx, h.now())
	if err != nil {
		h.Log.ErrorContext(ctx, "overdue invoice sweep failed", "error", err)
		return
	}
	if n > 0 {
		h.Metrics.InvoicesOverdueTotal.Add(float64(n))
		h.Log.InfoContext(ctx, "invoices marked overdue", "count", n)
	}
}
