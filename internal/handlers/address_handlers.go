package handlers

import (
	"net/http"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/gin-gonic/gin"
)

type AddressInput struct {
	CityID  int64  `json:"cityId" binding:"required,gt=0"`
	Street  string `json:"street" binding:"required,max=255"`
	ZipCode string `json:"zipCode" binding:"required,max=20"`
}

// ListAddresses is the handler for GET /v1/addresses (admin)
func (h *Handlers) ListAddresses(c *gin.Context) {
	addresses, err := h.Store.ListAddresses(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// CreateAddress is the handler for POST /v1/addresses
func (h *Handlers) CreateAddress(c *gin.Context) {
	var input AddressInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	a := &models.Address{
		UserID:  middleware.IdentityFrom(c).UserID,
		CityID:  input.CityID,
		Street:  input.Street,
		ZipCode: input.ZipCode,
	}
	if err := h.Store.CreateAddress(c.Request.Context(), a); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": a})
}

func (h *Handlers) loadAddress(c *gin.Context) (*models.Address, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	a, err := h.Store.GetAddress(c.Request.Context(), id)
	if err != nil {
		return nil, notFound(err, "Address")
	}
	if err := h.authorize(c, a, "address"); err != nil {
		return nil, err
	}
	if !visible(c, a.Lifecycle) {
		return nil, apperrors.NotFound("Address")
	}
	return a, nil
}

// GetAddress is the handler for GET /v1/addresses/:id
func (h *Handlers) GetAddress(c *gin.Context) {
	a, err := h.loadAddress(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": a})
}

// UpdateAddress is the handler for PUT /v1/addresses/:id
func (h *Handlers) UpdateAddress(c *gin.Context) {
	a, err := h.loadAddress(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input AddressInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	a.CityID, a.Street, a.ZipCode = input.CityID, input.Street, input.ZipCode
	if err := h.Store.UpdateAddress(c.Request.Context(), a); err != nil {
		h.respondError(c, notFound(err, "Address"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": a})
}

// DeactivateAddress is the handler for DELETE /v1/addresses/:id
func (h *Handlers) DeactivateAddress(c *gin.Context) {
	a, err := h.loadAddress(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeactivateAddress(c.Request.Context(), a.ID); err != nil {
		h.respondError(c, notFound(err, "Address"))
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCountries is the handler for GET /v1/countries
func (h *Handlers) ListCountries(c *gin.Context) {
	countries, err := h.Store.ListCountries(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"countries": countries})
}

// ListCities is the handler for GET /v1/cities
func (h *Handlers) ListCities(c *gin.Context) {
	cities, err := h.Store.ListCities(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}
