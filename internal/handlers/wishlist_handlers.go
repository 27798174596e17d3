package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
)

type WishlistInput struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
}

// ListWishlist is the handler for GET /v1/wishlist (caller's own entries).
func (h *Handlers) ListWishlist(c *gin.Context) {
	items, err := h.Store.ListWishlist(c.Request.Context(), middleware.IdentityFrom(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wishlist": items})
}

// AddToWishlist is the handler for POST /v1/wishlist
func (h *Handlers) AddToWishlist(c *gin.Context) {
	var input WishlistInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	p, err := h.Store.GetProduct(ctx, input.ProductID)
	if err != nil {
		h.respondError(c, notFound(err, "Product"))
		return
	}
	if !p.Lifecycle.IsActive() {
		h.respondError(c, apperrors.NotFound("Product"))
		return
	}

	w := &models.Wishlist{UserID: middleware.IdentityFrom(c).UserID, ProductID: p.ID}
	if err := h.Store.CreateWishlist(ctx, w); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			err = apperrors.Wrap(apperrors.Conflict("Product is already in your wishlist"), err)
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"wishlist": w})
}

// RemoveFromWishlist is the handler for DELETE /v1/wishlist/:id
func (h *Handlers) RemoveFromWishlist(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	w, err := h.Store.GetWishlist(ctx, id)
	if err != nil {
		h.respondError(c, notFound(err, "Wishlist entry"))
		return
	}
	if err := h.authorize(c, w, "wishlist"); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeactivateWishlist(ctx, w.ID); err != nil {
		h.respondError(c, notFound(err, "Wishlist entry"))
		return
	}
	c.Status(http.StatusNoContent)
}
