package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
)

const couponAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type CouponInput struct {
	Code            string          `json:"code" binding:"omitempty,alphanum,max=64"`
	DiscountPercent int             `json:"discountPercent" binding:"min=0,max=100"`
	ValidFrom       time.Time       `json:"validFrom" binding:"required"`
	ValidTo         time.Time       `json:"validTo" binding:"required,gtfield=ValidFrom"`
	MaxUsage        int             `json:"maxUsage" binding:"required,gte=1"`
	MinOrderAmount  decimal.Decimal `json:"minOrderAmount"`
}

// newCouponCode generates a readable code for coupons created without one.
func newCouponCode() (string, error) {
	gen, err := nanoid.CustomASCII(couponAlphabet, 10)
	if err != nil {
		return "", err
	}
	return gen(), nil
}

// ListCoupons is the handler for GET /v1/coupons (admin only).
func (h *Handlers) ListCoupons(c *gin.Context) {
	coupons, err := h.Store.ListCoupons(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}

// GetCoupon is the handler for GET /v1/coupons/:id (admin only).
func (h *Handlers) GetCoupon(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	coupon, err := h.Store.GetCoupon(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, notFound(err, "Coupon"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

// CreateCoupon is the handler for POST /v1/coupons (admin only).
func (h *Handlers) CreateCoupon(c *gin.Context) {
	var input CouponInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if input.MinOrderAmount.IsNegative() {
		h.respondError(c, apperrors.FieldError("minOrderAmount", "Ensure this value is greater than or equal to 0."))
		return
	}

	code := strings.ToUpper(input.Code)
	if code == "" {
		var err error
		if code, err = newCouponCode(); err != nil {
			h.respondError(c, err)
			return
		}
	}

	coupon := &models.Coupon{
		Code:            code,
		DiscountPercent: input.DiscountPercent,
		ValidFrom:       input.ValidFrom,
		ValidTo:         input.ValidTo,
		MaxUsage:        input.MaxUsage,
		MinOrderAmount:  input.MinOrderAmount,
	}
	if err := h.Store.CreateCoupon(c.Request.Context(), coupon); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			err = apperrors.Wrap(apperrors.Conflict("Coupon code already exists"), err)
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"coupon": coupon})
}

// DeactivateCoupon is the handler for DELETE /v1/coupons/:id (admin only).
// Orders already carrying the coupon lose its discount on their next repricing.
func (h *Handlers) DeactivateCoupon(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeactivateCoupon(c.Request.Context(), id); err != nil {
		h.respondError(c, notFound(err, "Coupon"))
		return
	}
	c.Status(http.StatusNoContent)
}
