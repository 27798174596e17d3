package handlers

import (
	"net/http"
	"strconv"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- Inputs ---

type CreateProductInput struct {
	ShopID      int64            `json:"shopId" binding:"required,gt=0"`
	CategoryID  int64            `json:"categoryId" binding:"required,gt=0"`
	Name        string           `json:"name" binding:"required,max=255"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	ImageURL    *string          `json:"imageUrl" binding:"omitempty,url"`
}

// UpdateProductInput is a partial update: absent fields keep their value.
type UpdateProductInput struct {
	CategoryID  *int64           `json:"categoryId" binding:"omitempty,gt=0"`
	Name        *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"imageUrl" binding:"omitempty,url"`
}

// checkPrice enforces a non-negative price with at most two decimals.
func checkPrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return apperrors.FieldError("price", "Ensure this value is greater than or equal to 0.")
	}
	if !p.Equal(p.Round(2)) {
		return apperrors.FieldError("price", "Ensure that there are no more than 2 decimal places.")
	}
	return nil
}

// activeCategory checks a product's category reference.
func (h *Handlers) activeCategory(c *gin.Context, id int64) error {
	cat, err := h.Store.GetCategory(c.Request.Context(), id)
	if err != nil {
		return notFound(err, "Category")
	}
	if !cat.Lifecycle.IsActive() {
		return apperrors.NotFound("Category")
	}
	return nil
}

// ListProducts is the handler for GET /v1/products?shopId=&categoryId=
func (h *Handlers) ListProducts(c *gin.Context) {
	var f store.ProductFilter
	for key, dst := range map[string]*int64{"shopId": &f.ShopID, "categoryId": &f.CategoryID} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			h.respondError(c, apperrors.FieldError(key, "Must be a positive integer."))
			return
		}
		*dst = v
	}

	products, err := h.Store.ListProducts(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct is the handler for GET /v1/products/:id
func (h *Handlers) GetProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	p, err := h.Store.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, notFound(err, "Product"))
		return
	}
	if !visible(c, p.Lifecycle) {
		h.respondError(c, apperrors.NotFound("Product"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// CreateProduct is the handler for POST /v1/products (seller or admin).
// The caller must own the target shop.
func (h *Handlers) CreateProduct(c *gin.Context) {
	// 1. --- Bind & Validate ---
	var input CreateProductInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if err := checkPrice(*input.Price); err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	// 2. --- Shop ownership ---
	shop, err := h.Store.GetShop(ctx, input.ShopID)
	if err != nil {
		h.respondError(c, notFound(err, "Shop"))
		return
	}
	if !shop.Lifecycle.IsActive() {
		h.respondError(c, apperrors.NotFound("Shop"))
		return
	}
	if err := h.authorize(c, shop, "shop"); err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Category ---
	if err := h.activeCategory(c, input.CategoryID); err != nil {
		h.respondError(c, err)
		return
	}

	// 4. --- Save ---
	p := &models.Product{
		ShopID:      shop.ID,
		CategoryID:  input.CategoryID,
		Name:        input.Name,
		Description: input.Description,
		Price:       *input.Price,
		ImageURL:    input.ImageURL,
		Shop:        shop,
	}
	if err := h.Store.CreateProduct(ctx, p); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

// loadOwnedProduct loads :id with its shop and checks ownership via the shop.
func (h *Handlers) loadOwnedProduct(c *gin.Context) (*models.Product, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.Store.GetProduct(c.Request.Context(), id)
	if err != nil {
		return nil, notFound(err, "Product")
	}
	if err := h.authorize(c, p, "product"); err != nil {
		return nil, err
	}
	if !p.Lifecycle.IsActive() {
		return nil, apperrors.NotFound("Product")
	}
	return p, nil
}

// UpdateProduct is the handler for PUT /v1/products/:id
func (h *Handlers) UpdateProduct(c *gin.Context) {
	p, err := h.loadOwnedProduct(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input UpdateProductInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if input.Price != nil {
		if err := checkPrice(*input.Price); err != nil {
			h.respondError(c, err)
			return
		}
		p.Price = *input.Price
	}
	if input.CategoryID != nil && *input.CategoryID != p.CategoryID {
		if err := h.activeCategory(c, *input.CategoryID); err != nil {
			h.respondError(c, err)
			return
		}
		p.CategoryID = *input.CategoryID
	}
	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.ImageURL != nil {
		p.ImageURL = input.ImageURL
	}
	if err := h.Store.UpdateProduct(c.Request.Context(), p); err != nil {
		h.respondError(c, notFound(err, "Product"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

// DeactivateProduct is the handler for DELETE /v1/products/:id
func (h *Handlers) DeactivateProduct(c *gin.Context) {
	p, err := h.loadOwnedProduct(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeactivateProduct(c.Request.Context(), p.ID); err != nil {
		h.respondError(c, notFound(err, "Product"))
		return
	}
	h.Log.InfoContext(c.Request.Context(), "product deactivated",
		"product_id", p.ID, "user_id", middleware.IdentityFrom(c).UserID)
	c.Status(http.StatusNoContent)
}
