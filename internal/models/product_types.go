package models

import (
	"time"

	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/shopspring/decimal"
)

// ShopStatus is the review state of a shop.
type ShopStatus string

const (
	ShopPending  ShopStatus = "PENDING"
	ShopApproved ShopStatus = "APPROVED"
	ShopRejected ShopStatus = "REJECTED"
)

// Shop is the model for the 'shops' table
type Shop struct {
	ID        int64      `json:"id" db:"id"`
	OwnerID   int64      `json:"ownerId" db:"owner_id"`
	Name      string     `json:"name" db:"name"`
	Status    ShopStatus `json:"status" db:"status"`
	AddressID int64      `json:"addressId" db:"address_id"`
	Lifecycle Lifecycle  `json:"lifecycle" db:"lifecycle"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

func (s *Shop) Ownership() permissions.Ownership { return permissions.OwnedBy(s.OwnerID) }

// AcceptsOrders is true for an active, approved shop.
func (s *Shop) AcceptsOrders() bool {
	return s.Lifecycle.IsActive() && s.Status == ShopApproved
}

// Product is the model for the 'products' table.
// Price is fixed-point with 2 fractional digits.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	ShopID      int64           `json:"shopId" db:"shop_id"`
	CategoryID  int64           `json:"categoryId" db:"category_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	ImageURL    *string         `json:"imageUrl,omitempty" db:"image_url"`
	Lifecycle   Lifecycle       `json:"lifecycle" db:"lifecycle"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`

	// Joins (Not in DB table, populated manually)
	Shop *Shop `json:"-" db:"-"`
}

// A product is owned by whoever owns its shop.
func (p *Product) Ownership() permissions.Ownership {
	return permissions.OwnedVia(permissions.RelationShop)
}

func (p *Product) Related(rel permissions.Relation) permissions.Ownable {
	if rel == permissions.RelationShop && p.Shop != nil {
		return p.Shop
	}
	return nil
}

// Wishlist is the model for the 'wishlists' table
type Wishlist struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Lifecycle Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (w *Wishlist) Ownership() permissions.Ownership { return permissions.OwnedBy(w.UserID) }
