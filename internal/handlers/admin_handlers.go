package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
)

//
// --- Admin-Only Handlers ---
//

type SetRoleInput struct {
	Role permissions.Role `json:"role" binding:"required,oneof=ADMIN SELLER USER"`
}

// SetUserRole is the handler for PATCH /v1/users/:id/role
// Granting ADMIN also grants staff; any other role revokes it.
func (h *Handlers) SetUserRole(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input SetRoleInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	isStaff := input.Role == permissions.RoleAdmin
	if err := h.Store.SetUserRole(c.Request.Context(), id, input.Role, isStaff); err != nil {
		h.respondError(c, notFound(err, "User"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "role": input.Role, "isStaff": isStaff})
}

// ApproveShop is the handler for PATCH /v1/shops/:id/approve
// It changes a shop's status from PENDING to APPROVED.
func (h *Handlers) ApproveShop(c *gin.Context) {
	h.reviewShop(c, models.ShopApproved, "Shop approved successfully")
}

// RejectShop is the handler for PATCH /v1/shops/:id/reject
// It changes a shop's status from PENDING to REJECTED.
func (h *Handlers) RejectShop(c *gin.Context) {
	h.reviewShop(c, models.ShopRejected, "Shop rejected successfully")
}

func (h *Handlers) reviewShop(c *gin.Context, to models.ShopStatus, message string) {
	id, err := paramID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	err = h.Store.TransitionShopStatus(c.Request.Context(), id, models.ShopPending, to)
	switch {
	case errors.Is(err, store.ErrConflict):
		h.respondError(c, apperrors.Conflict("Shop was not pending approval"))
		return
	case err != nil:
		h.respondError(c, notFound(err, "Shop"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message, "status": to})
}
