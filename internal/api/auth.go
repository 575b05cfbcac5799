package api

import (
	"errors"                          // Error inspection
	"net/http"                        // HTTP status codes
	"vending_machine/internal/domain" // Importing domain models
	"vending_machine/internal/ledger" // Record store
	"vending_machine/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Request struct for login
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"` // Username must be provided
}

// UserResponse is the public shape of a user
type UserResponse struct {
	ID       string `json:"id"`       // User ID
	Username string `json:"username"` // Username
	Credit   string `json:"credit"`   // Credit, 2 decimal places
}

// Response struct for authentication
type AuthResponse struct {
	User  UserResponse `json:"user"`  // Authenticated user
	Token string       `json:"token"` // JWT token
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Username: u.Username, Credit: u.Credit.StringFixed(2)}
}

// LoginHandler looks a user up by username and returns it with a JWT token
func LoginHandler(store ledger.Store, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		user, err := store.GetUserByUsername(c.Request.Context(), req.Username) // Fetch user from store
		if errors.Is(err, ledger.ErrNotFound) {
			// If user not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		} else if err != nil {
			logrus.WithFields(logrus.Fields{
				"username": req.Username, // Attempted username
				"error":    err.Error(),  // Error message
			}).Error("Login lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the user and token in the response
		c.JSON(http.StatusOK, AuthResponse{User: newUserResponse(user), Token: token})
	}
}
