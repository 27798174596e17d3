package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

type CategoryInput struct {
	Name     string `json:"name" binding:"required,max=255"`
	ParentID *int64 `json:"parentId" binding:"omitempty,gt=0"`
}

// categoryTree nests a flat, name-ordered list under its parents.
// Categories whose parent is missing from the list are treated as roots.
func categoryTree(flat []models.Category) []models.Category {
	byParent := make(map[int64][]models.Category)
	known := make(map[int64]bool, len(flat))
	for _, cat := range flat {
		known[cat.ID] = true
	}

	var roots []models.Category
	for _, cat := range flat {
		if cat.ParentID != nil && known[*cat.ParentID] {
			byParent[*cat.ParentID] = append(byParent[*cat.ParentID], cat)
			continue
		}
		roots = append(roots, cat)
	}

	var attach func(cats []models.Category) []models.Category
	attach = func(cats []models.Category) []models.Category {
		for i := range cats {
			cats[i].Children = attach(byParent[cats[i].ID])
		}
		return cats
	}
	return attach(roots)
}

// ListCategories is the handler for GET /v1/categories (tree structure).
func (h *Handlers) ListCategories(c *gin.Context) {
	flat, err := h.Store.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	tree := categoryTree(flat)
	if tree == nil {
		tree = []models.Category{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": tree})
}

// GetCategory is the handler for GET /v1/categories/:id
func (h *Handlers) GetCategory(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	cat, err := h.Store.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, notFound(err, "Category"))
		return
	}
	if !visible(c, cat.Lifecycle) {
		h.respondError(c, apperrors.NotFound("Category"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat})
}

// checkParent rejects a parent that is missing or deactivated, and one
// that would put self (0 for a new category) inside its own subtree.
func (h *Handlers) checkParent(c *gin.Context, parentID *int64, self int64) error {
	if parentID == nil {
		return nil
	}
	missing := apperrors.FieldError("parentId", "Parent category does not exist.")
	for next, first := parentID, true; next != nil; first = false {
		if *next == self {
			return apperrors.FieldError("parentId", "A category cannot be nested under itself.")
		}
		cat, err := h.Store.GetCategory(c.Request.Context(), *next)
		if errors.Is(err, store.ErrNotFound) && first {
			return missing
		}
		if err != nil {
			return err
		}
		if first && !cat.Lifecycle.IsActive() {
			return missing
		}
		next = cat.ParentID
	}
	return nil
}

// CreateCategory is the handler for POST /v1/categories (admin only).
func (h *Handlers) CreateCategory(c *gin.Context) {
	var input CategoryInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.checkParent(c, input.ParentID, 0); err != nil {
		h.respondError(c, err)
		return
	}

	cat := &models.Category{
		Name:      input.Name,
		Slug:      slug.Make(input.Name),
		ParentID:  input.ParentID,
		CreatedBy: middleware.IdentityFrom(c).UserID,
	}
	if err := h.Store.CreateCategory(c.Request.Context(), cat); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": cat})
}

func (h *Handlers) loadOwnedCategory(c *gin.Context) (*models.Category, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	cat, err := h.Store.GetCategory(c.Request.Context(), id)
	if err != nil {
		return nil, notFound(err, "Category")
	}
	if err := h.authorize(c, cat, "category"); err != nil {
		return nil, err
	}
	if !cat.Lifecycle.IsActive() {
		return nil, apperrors.NotFound("Category")
	}
	return cat, nil
}

// UpdateCategory is the handler for PUT /v1/categories/:id (admin only).
func (h *Handlers) UpdateCategory(c *gin.Context) {
	cat, err := h.loadOwnedCategory(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input CategoryInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.checkParent(c, input.ParentID, cat.ID); err != nil {
		h.respondError(c, err)
		return
	}

	cat.Name = input.Name
	cat.Slug = slug.Make(input.Name)
	cat.ParentID = input.ParentID
	if err := h.Store.UpdateCategory(c.Request.Context(), cat); err != nil {
		h.respondError(c, notFound(err, "Category"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": cat})
}

// DeactivateCategory is the handler for DELETE /v1/categories/:id (admin only).
func (h *Handlers) DeactivateCategory(c *gin.Context) {
	cat, err := h.loadOwnedCategory(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeactivateCategory(c.Request.Context(), cat.ID); err != nil {
		h.respondError(c, notFound(err, "Category"))
		return
	}
	c.Status(http.StatusNoContent)
}
