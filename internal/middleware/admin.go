package middleware

import (
	"net/http"                        // HTTP status codes
	"vending_machine/internal/ledger" // Record store

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/google/uuid"   // UUID identities
)

// AdminOnlyMiddleware checks the user's role from the store on each request
func AdminOnlyMiddleware(store ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(UserIDKey) // Get userID from context
		id, ok := userID.(uuid.UUID)
		// Check if userID exists in context
		if !exists || !ok {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := store.GetUser(c.Request.Context(), id) // Fetch user from store
		if err != nil {
			// If user not found or any error, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// Check if user role is admin
		if !user.IsAdmin() {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
