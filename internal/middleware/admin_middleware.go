package middleware

import (
	"net/http"

	"github.com/01moynul/bazaar-golang/internal/permissions"
	"github.com/gin-gonic/gin"
)

//
// --- Role-Based Middleware ---
//
// These middleware functions are designed to be USED *AFTER*
// the main AuthMiddleware(). They read the Identity it stored.
//

func requireIdentity(check func(permissions.Identity) bool, denied string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get the caller from AuthMiddleware
		id := IdentityFrom(c)
		if !id.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required (AuthMiddleware must run first)"})
			return
		}

		// 2. Check permission
		if !check(id) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": denied})
			return
		}
		c.Next()
	}
}

// AdminMiddleware lets staff and superusers through.
func AdminMiddleware() gin.HandlerFunc {
	return requireIdentity(permissions.IsAdmin, "Access denied: Admin role required")
}

// SellerOrAdminMiddleware lets sellers, staff and superusers through.
func SellerOrAdminMiddleware() gin.HandlerFunc {
	return requireIdentity(permissions.IsSellerOrAdmin, "Access denied: Seller or Admin role required")
}
