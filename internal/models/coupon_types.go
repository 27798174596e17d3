package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is the model for the 'coupons' table
type Coupon struct {
	ID              int64           `json:"id" db:"id"`
	Code            string          `json:"code" db:"code"`
	DiscountPercent int             `json:"discountPercent" db:"discount_percent"` // 0-100
	ValidFrom       time.Time       `json:"validFrom" db:"valid_from"`
	ValidTo         time.Time       `json:"validTo" db:"valid_to"`
	Active          bool            `json:"active" db:"active"`
	MaxUsage        int             `json:"maxUsage" db:"max_usage"`
	UsageCount      int             `json:"usageCount" db:"usage_count"`
	MinOrderAmount  decimal.Decimal `json:"minOrderAmount" db:"min_order_amount"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
}
