package api

import (
	"context"                             // Request deadlines
	"net/http"                            // HTTP status codes
	"time"                                // Time durations
	"vending_machine/internal/middleware" // Auth context keys
	"vending_machine/internal/vending"    // Purchase rules

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/google/uuid"       // UUID identities
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// OrderRequest represents a purchase request
type OrderRequest struct {
	UserID    uuid.UUID `json:"user_id" binding:"required"`    // Buyer
	ProductID uuid.UUID `json:"product_id" binding:"required"` // Product to buy
	SlotID    uuid.UUID `json:"slot_id" binding:"required"`    // Slot to take it from
}

// OrderResponse is returned for a successful purchase
type OrderResponse struct {
	OrderID string `json:"order_id"` // Created order
}

// ErrorResponse describes a rejected purchase
type ErrorResponse struct {
	ErrorKind vending.ErrorKind `json:"error_kind"` // insufficient_credit, out_of_stock or internal
	Error     string            `json:"error"`      // Human readable detail
}

// PlaceOrderHandler sells one unit to the authenticated user
func PlaceOrderHandler(coordinator *vending.Coordinator, rdb *redis.Client, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OrderRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Users may only buy for themselves
		if authID, _ := c.Get(middleware.UserIDKey); authID != req.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot order for another user"})
			return
		}

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout) // Bound the whole purchase
			defer cancel()
		}
		order, err := coordinator.PlaceOrder(ctx, req.UserID, req.ProductID, req.SlotID)
		if err != nil {
			kind := vending.Classify(err)
			if kind == vending.KindInternal {
				// Faults are logged by the coordinator; keep the detail out of the response
				c.JSON(http.StatusInternalServerError, ErrorResponse{ErrorKind: kind, Error: "Order failed"})
				return
			}
			c.JSON(http.StatusBadRequest, ErrorResponse{ErrorKind: kind, Error: err.Error()})
			return
		}

		// Stock changed, retire cached slot listings
		invalidateSlotCache(context.Background(), rdb, logrus.Fields{"order_id": order.ID})
		// Return success response
		c.JSON(http.StatusCreated, OrderResponse{OrderID: order.ID.String()})
	}
}
