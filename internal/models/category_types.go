package models

import (
	"time"

	"github.com/01moynul/bazaar-golang/internal/permissions"
)

// Category defines the struct for the 'categories' table
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	ParentID  *int64    `json:"parentId,omitempty" db:"parent_id"` // Use pointer for NULL
	CreatedBy int64     `json:"createdBy" db:"created_by"`
	Lifecycle Lifecycle `json:"lifecycle" db:"lifecycle"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Populated when the list is returned as a tree
	Children []Category `json:"children,omitempty" db:"-"`
}

func (c *Category) Ownership() permissions.Ownership { return permissions.OwnedBy(c.CreatedBy) }
