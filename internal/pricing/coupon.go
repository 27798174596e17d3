package pricing

import (
	"errors"
	"time"

	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrCouponInactive       = errors.New("coupon is inactive")
	ErrCouponNotYetValid    = errors.New("coupon is not yet valid")
	ErrCouponExpired        = errors.New("coupon has expired")
	ErrCouponUsageExhausted = errors.New("coupon usage limit reached")
	ErrOrderBelowMinimum    = errors.New("order total is below the coupon minimum")
	ErrCouponAlreadyApplied = errors.New("order already has a coupon")
)

// CheckCoupon returns the first reason c cannot be applied at now, or nil.
// The minimum order amount is only checked when orderTotal is given.
func CheckCoupon(c *models.Coupon, now time.Time, orderTotal *decimal.Decimal) error {
	return checkCoupon(c, now, orderTotal, false)
}

// CouponIsValid is the boolean form of CheckCoupon.
func CouponIsValid(c *models.Coupon, now time.Time, orderTotal *decimal.Decimal) bool {
	return CheckCoupon(c, now, orderTotal) == nil
}

// held is set when the order being priced already counts towards
// c.UsageCount, so its own redemption must not exhaust the coupon.
func checkCoupon(c *models.Coupon, now time.Time, orderTotal *decimal.Decimal, held bool) error {
	if !c.Active {
		return ErrCouponInactive
	}
	if now.Before(c.ValidFrom) {
		return ErrCouponNotYetValid
	}
	if now.After(c.ValidTo) {
		return ErrCouponExpired
	}

	used := c.UsageCount
	if held {
		used--
	}
	if used >= c.MaxUsage {
		return ErrCouponUsageExhausted
	}

	if orderTotal != nil && orderTotal.LessThan(c.MinOrderAmount) {
		return ErrOrderBelowMinimum
	}
	return nil
}
