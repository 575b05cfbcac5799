package api

import (
	"context"                         // Context for Redis operations
	"errors"                          // Error inspection
	"net/http"                        // HTTP status codes
	"vending_machine/internal/domain" // Importing domain models
	"vending_machine/internal/ledger" // Record store

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/google/uuid"        // UUID identities
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Fixed-point currency
	"github.com/sirupsen/logrus"    // Logging library
)

// maxCredit is the largest balance a decimal(6,2) column holds
var maxCredit = decimal.RequireFromString("9999.99")

// CreditRequest sets a user's credit
type CreditRequest struct {
	Credit *decimal.Decimal `json:"credit" binding:"required"` // New balance
}

// QuantityRequest sets a slot's quantity
type QuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=100"` // New stock level
}

// validCredit reports whether credit is within 0..9999.99 with at most 2 decimal places
func validCredit(credit decimal.Decimal) bool {
	return !credit.IsNegative() && !credit.GreaterThan(maxCredit) && credit.Equal(credit.Truncate(2))
}

// SetUserCreditHandler overwrites a user's credit
func SetUserCreditHandler(store ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id")) // Target user
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req CreditRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || !validCredit(*req.Credit) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credit"})
			return
		}
		err = store.SetUserCredit(c.Request.Context(), id, *req.Credit)
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		} else if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": id,          // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to set credit")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set credit"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": id,                        // User ID
			"credit":  req.Credit.StringFixed(2), // New balance
		}).Info("Credit set")
		c.Status(http.StatusNoContent)
	}
}

// SetSlotQuantityHandler overwrites a slot's stock level
func SetSlotQuantityHandler(store ledger.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id")) // Target slot
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot id"})
			return
		}
		var req QuantityRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || *req.Quantity > domain.MaxSlotQuantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be between 0 and 100"})
			return
		}
		err = store.SetSlotQuantity(c.Request.Context(), id, *req.Quantity)
		if errors.Is(err, ledger.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Slot not found"})
			return
		} else if err != nil {
			logrus.WithFields(logrus.Fields{
				"slot_id": id,          // Slot ID
				"error":   err.Error(), // Error message
			}).Error("Failed to set quantity")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set quantity"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"slot_id":  id,            // Slot ID
			"quantity": *req.Quantity, // New stock level
		}).Info("Quantity set")
		// Stock changed, retire cached slot listings
		invalidateSlotCache(context.Background(), rdb, logrus.Fields{"slot_id": id})
		c.Status(http.StatusNoContent)
	}
}
