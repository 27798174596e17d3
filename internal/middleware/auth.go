package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/01moynul/bazaar-golang/internal/auth"
	"github.com/01moynul/bazaar-golang/internal/models"
	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/01moynul/bazaar-golang/internal/store"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// UserLoader is the slice of the store the auth middleware needs.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// AuthMiddleware creates a gin.HandlerFunc that acts as our "security guard".
// It resolves the bearer token to the current user row and stores the
// caller's Identity in the context.
func AuthMiddleware(tokens *auth.TokenManager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			return
		}

		// 2. --- Validate Token ---
		userID, err := tokens.ValidateToken(parts[1], auth.AccessToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 3. --- Load the user; role and flags may have changed since login ---
		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}
		if !user.Lifecycle.IsActive() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
			return
		}

		// 4. --- Success ---
		c.Set(identityKey, user.Identity())
		c.Next()
	}
}

// SetIdentity stores id the way AuthMiddleware does.
func SetIdentity(c *gin.Context, id permissions.Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the caller stored by AuthMiddleware. The zero
// Identity is returned for anonymous requests.
func IdentityFrom(c *gin.Context) permissions.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return permissions.Identity{}
	}
	id, _ := v.(permissions.Identity)
	return id
}
