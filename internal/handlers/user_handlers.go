package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/bazaar-golang/internal/apperrors"
	"github.com/01moynul/bazaar-golang/internal/middleware"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
)

// --- User Registration ---

// RegisterInput is separate from models.User because we never accept an
// id, role or flags from the client.
type RegisterInput struct {
	Username  string `json:"username" binding:"required,min=3,max=150"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required,min=6,max=20"`
	Password1 string `json:"password1" binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required,eqfield=Password1"`
}

// Register is the handler for POST /v1/register
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password1); err != nil {
		h.respondError(c, err)
		return
	}

	// 3. --- Save ---
	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		Phone:        input.Phone,
		Role:         permissions.RoleUser,
		PasswordHash: password.Hash,
	}
	if err := h.Store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			h.respondError(c, apperrors.Conflict("A user with that username, email or phone already exists"))
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
}

type LoginInput struct {
	Login    string `json:"login" binding:"required"` // username or email
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/login
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	// 1. --- Find the user; the same answer for unknown and wrong password ---
	invalid := apperrors.Unauthorized("Invalid credentials")
	user, err := h.Store.GetUserByLogin(c.Request.Context(), input.Login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(c, invalid)
			return
		}
		h.respondError(c, err)
		return
	}
	if !user.Lifecycle.IsActive() {
		h.respondError(c, invalid)
		return
	}

	// 2. --- Check the password ---
	password := models.Password{Hash: user.PasswordHash}
	ok, err := password.Matches(input.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ok {
		h.respondError(c, invalid)
		return
	}

	// 3. --- Issue tokens ---
	pair, err := h.Tokens.GeneratePair(user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": pair.Access, "refresh": pair.Refresh, "user": user})
}

type RefreshInput struct {
	Refresh string `json:"refresh" binding:"required"`
}

// RefreshToken is the handler for POST /v1/refresh-token
func (h *Handlers) RefreshToken(c *gin.Context) {
	var input RefreshInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	access, err := h.Tokens.Refresh(input.Refresh)
	if err != nil {
		h.respondError(c, apperrors.Unauthorized("Invalid or expired refresh token"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

type ChangePasswordInput struct {
	OldPassword  string `json:"oldPassword" binding:"required"`
	NewPassword  string `json:"newPassword" binding:"required,min=8"`
	NewPassword1 string `json:"newPassword1" binding:"required,eqfield=NewPassword"`
}

// ChangePassword is the handler for POST /v1/change-password
func (h *Handlers) ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	caller := middleware.IdentityFrom(c)

	user, err := h.Store.GetUser(ctx, caller.UserID)
	if err != nil {
		h.respondError(c, notFound(err, "User"))
		return
	}

	current := models.Password{Hash: user.PasswordHash}
	ok, err := current.Matches(input.OldPassword)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !ok {
		h.respondError(c, apperrors.FieldError("oldPassword", "Old password is not correct."))
		return
	}

	var next models.Password
	if err := next.Set(input.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.UpdatePassword(ctx, user.ID, next.Hash); err != nil {
		h.respondError(c, notFound(err, "User"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

//
// --- User Management ---
//

// ListUsers is the handler for GET /v1/users (admin)
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// loadUser fetches the :id user and checks the caller may act on it.
func (h *Handlers) loadUser(c *gin.Context) (*models.User, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	user, err := h.Store.GetUser(c.Request.Context(), id)
	if err != nil {
		return nil, notFound(err, "User")
	}
	if err := h.authorize(c, user, "user"); err != nil {
		return nil, err
	}
	if !visible(c, user.Lifecycle) {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

// GetUser is the handler for GET /v1/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	user, err := h.loadUser(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type UpdateUserInput struct {
	Username string `json:"username" binding:"required,min=3,max=150"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required,min=6,max=20"`
}

// UpdateUser is the handler for PUT /v1/users/:id
func (h *Handlers) UpdateUser(c *gin.Context) {
	user, err := h.loadUser(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input UpdateUserInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	user.Username, user.Email, user.Phone = input.Username, input.Email, input.Phone
	if err := h.Store.UpdateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			h.respondError(c, apperrors.Conflict("A user with that username, email or phone already exists"))
			return
		}
		h.respondError(c, notFound(err, "User"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeactivateUser is the handler for DELETE /v1/users/:id
func (h *Handlers) DeactivateUser(c *gin.Context) {
	user, err := h.loadUser(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Store.DeactivateUser(c.Request.Context(), user.ID); err != nil {
		h.respondError(c, notFound(err, "User"))
		return
	}
	c.Status(http.StatusNoContent)
}
