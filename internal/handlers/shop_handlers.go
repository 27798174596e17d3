package handlers

import (
	"net/http"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/gin-gonic/gin"
)

type ShopInput struct {
	Name      string `json:"name" binding:"required,max=255"`
	AddressID int64  `json:"addressId" binding:"required,gt=0"`
}

// ListShops is the handler for GET /v1/shops
func (h *Handlers) ListShops(c *gin.Context) {
	shops, err := h.Store.ListShops(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shops": shops})
}

// GetShop is the handler for GET /v1/shops/:id
func (h *Handlers) GetShop(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	shop, err := h.Store.GetShop(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, notFound(err, "Shop"))
		return
	}
	if !visible(c, shop.Lifecycle) {
		h.respondError(c, apperrors.NotFound("Shop"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": shop})
}

// ownAddress loads an active address the caller may use.
func (h *Handlers) ownAddress(c *gin.Context, id int64) (*models.Address, error) {
	a, err := h.Store.GetAddress(c.Request.Context(), id)
	if err != nil {
		return nil, notFound(err, "Address")
	}
	if !a.Lifecycle.IsActive() {
		return nil, apperrors.NotFound("Address")
	}
	if err := h.authorize(c, a, "address"); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateShop is the handler for POST /v1/shops (seller or admin).
// New shops start PENDING until an admin reviews them.
func (h *Handlers) CreateShop(c *gin.Context) {
	var input ShopInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if _, err := h.ownAddress(c, input.AddressID); err != nil {
		h.respondError(c, err)
		return
	}

	shop := &models.Shop{
		OwnerID:   middleware.IdentityFrom(c).UserID,
		Name:      input.Name,
		AddressID: input.AddressID,
	}
	if err := h.Store.CreateShop(c.Request.Context(), shop); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"shop": shop})
}

func (h *Handlers) loadOwnedShop(c *gin.Context) (*models.Shop, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	shop, err := h.Store.GetShop(c.Request.Context(), id)
	if err != nil {
		return nil, notFound(err, "Shop")
	}
	if err := h.authorize(c, shop, "shop"); err != nil {
		return nil, err
	}
	if !shop.Lifecycle.IsActive() {
		return nil, apperrors.NotFound("Shop")
	}
	return shop, nil
}

// UpdateShop is the handler for PUT /v1/shops/:id
func (h *Handlers) UpdateShop(c *gin.Context) {
	shop, err := h.loadOwnedShop(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input ShopInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if input.AddressID != shop.AddressID {
		if _, err := h.ownAddress(c, input.AddressID); err != nil {
			h.respondError(c, err)
			return
		}
	}

	shop.Name, shop.AddressID = input.Name, input.AddressID
	if err := h.Store.UpdateShop(c.Request.Context(), shop); err != nil {
		h.respondError(c, notFound(err, "Shop"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": shop})
}

// DeactivateShop is the handler for DELETE /v1/shops/:id
func (h *Handlers) DeactivateShop(c *gin.Context) {
	shop, err := h.loadOwnedShop(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeactivateShop(c.Request.Context(), shop.ID); err != nil {
		h.respondError(c, notFound(err, "Shop"))
		return
	}
	c.Status(http.StatusNoContent)
}
