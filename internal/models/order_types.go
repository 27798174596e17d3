package models

import (
	"time"

	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/shopspring/decimal"
)

// Order is the model for the 'orders' table.
// DiscountAmount and TotalPrice are derived by the pricing engine.
type Order struct {
	ID             int64           `json:"id" db:"id"`
	UserID         int64           `json:"userId" db:"user_id"`
	ShopID         int64           `json:"shopId" db:"shop_id"`
	AddressID      int64           `json:"addressId" db:"address_id"`
	CouponID       *int64          `json:"couponId,omitempty" db:"coupon_id"`
	DiscountAmount decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	TotalPrice     decimal.Decimal `json:"totalPrice" db:"total_price"`
	Lifecycle      Lifecycle       `json:"lifecycle" db:"lifecycle"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`

	Items  []OrderItem `json:"items" db:"-"`
	Coupon *Coupon     `json:"-" db:"-"`
}

func (o *Order) Ownership() permissions.Ownership { return permissions.OwnedBy(o.UserID) }

// OrderItem is the model for the 'order_items' table.
// UnitPrice and RowPrice are snapshots taken when the item was created.
type OrderItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"orderId" db:"order_id"`
	ProductID int64           `json:"productId" db:"product_id"`
	Count     int             `json:"count" db:"count"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"` // Price at the time of purchase
	RowPrice  decimal.Decimal `json:"rowPrice" db:"row_price"`
	Lifecycle Lifecycle       `json:"lifecycle" db:"lifecycle"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`

	Order *Order `json:"-" db:"-"`
}

func (i *OrderItem) Ownership() permissions.Ownership {
	return permissions.OwnedVia(permissions.RelationOrder)
}

func (i *OrderItem) Related(rel permissions.Relation) permissions.Ownable {
	if rel == permissions.RelationOrder && i.Order != nil {
		return i.Order
	}
	return nil
}

// DeliveryMethod is the carrier used for an order.
type DeliveryMethod string

const (
	DeliveryTPOX DeliveryMethod = "TPOX"
	DeliveryPost DeliveryMethod = "POST"
)

// Delivery is the model for the 'deliveries' table
type Delivery struct {
	ID        int64          `json:"id" db:"id"`
	OrderID   int64          `json:"orderId" db:"order_id"`
	Method    DeliveryMethod `json:"method" db:"method"`
	Lifecycle Lifecycle      `json:"lifecycle" db:"lifecycle"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`

	Order *Order `json:"-" db:"-"`
}

func (d *Delivery) Ownership() permissions.Ownership {
	return permissions.OwnedVia(permissions.RelationOrder)
}

func (d *Delivery) Related(rel permissions.Relation) permissions.Ownable {
	if rel == permissions.RelationOrder && d.Order != nil {
		return d.Order
	}
	return nil
}
