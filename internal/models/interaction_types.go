package models

import (
	"time"

	"github.com/01moynul/bazaar-golang/internal/permissions"
)

// Comment is the model for the 'comments' table. ParentID links a reply.
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	ParentID  *int64    `json:"parentId,omitempty" db:"parent_id"`
	Text      string    `json:"text" db:"text"`
	Lifecycle Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

func (c *Comment) Ownership() permissions.Ownership { return permissions.OwnedBy(c.UserID) }

// Rating is the model for the 'ratings' table. One per user and product.
type Rating struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Score     int       `json:"score" db:"score"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (r *Rating) Ownership() permissions.Ownership { return permissions.OwnedBy(r.UserID) }
