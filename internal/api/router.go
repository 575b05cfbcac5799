package api

import (
	"time"                                // Time durations
	"vending_machine/internal/ledger"     // Record store
	"vending_machine/internal/middleware" // Auth middleware
	"vending_machine/internal/vending"    // Purchase rules

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// Deps are the collaborators the HTTP layer needs
type Deps struct {
	Store        ledger.Store         // Record store
	Coordinator  *vending.Coordinator // Purchase coordinator
	Catalog      *vending.Catalog     // Slot listings
	Redis        *redis.Client        // Optional cache, nil disables it
	JWTSecret    string               // Token signing key
	OrderTimeout time.Duration        // Deadline per purchase, 0 for none
	CacheTTL     time.Duration        // Lifetime of cached listings
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/healthcheck", HealthHandler(d.Store, d.Redis))            // Liveness endpoint
	r.POST("/login", LoginHandler(d.Store, d.JWTSecret))              // Login endpoint
	r.GET("/slots", ListSlotsHandler(d.Catalog, d.Redis, d.CacheTTL)) // Slot listing endpoint

	// Purchase route (protected by JWT)
	r.POST("/order", middleware.JWTAuthMiddleware(d.JWTSecret), PlaceOrderHandler(d.Coordinator, d.Redis, d.OrderTimeout))

	// Admin routes (protected, admin only)
	admin := r.Group("", middleware.JWTAuthMiddleware(d.JWTSecret), middleware.AdminOnlyMiddleware(d.Store))
	admin.PATCH("/users/:id/credit", SetUserCreditHandler(d.Store))              // Set credit endpoint
	admin.PATCH("/slots/:id/quantity", SetSlotQuantityHandler(d.Store, d.Redis)) // Set stock endpoint
}
