package api

import (
	"context"                          // Context for Redis operations
	"net/http"                         // HTTP status codes
	"strconv"                          // String conversion
	"time"                             // Time durations
	"vending_machine/internal/utils"   // Utility functions
	"vending_machine/internal/vending" // Slot catalog

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Slot listings are cached per generation: slots:g<N>:<filter>. Writers bump
// slots:gen, so a listing that read the store before a write lands in a
// generation nobody reads any more.
const (
	slotsCachePrefix = "slots:"
	slotsGenKey      = slotsCachePrefix + "gen"
)

// slotsGenPrefix is the key prefix shared by every listing of generation gen
func slotsGenPrefix(gen int64) string {
	return slotsCachePrefix + "g" + strconv.FormatInt(gen, 10) + ":"
}

// invalidateSlotCache retires every cached listing after stock changed
func invalidateSlotCache(ctx context.Context, rdb *redis.Client, fields logrus.Fields) {
	gen, err := utils.BumpCacheGeneration(ctx, rdb, slotsGenKey) // New listings use the next generation
	if err == nil && gen > 0 {
		err = utils.DeleteCachePrefix(ctx, rdb, slotsGenPrefix(gen-1)) // Free the retired entries
	}
	if err != nil {
		logrus.WithFields(fields).WithField("error", err.Error()).Warn("Failed to invalidate slot cache")
	}
}

// ListSlotsHandler returns slots, optionally only those with quantity <= ?quantity
func ListSlotsHandler(catalog *vending.Catalog, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var maxQuantity *int // No bound by default
		filterKey := "all"
		if q, ok := c.GetQuery("quantity"); ok {
			v, err := strconv.Atoi(q)
			// Quantity must be a non-negative integer
			if err != nil || v < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a non-negative integer"})
				return
			}
			maxQuantity = &v
			filterKey = "quantity=" + strconv.Itoa(v)
		}

		ctx := context.Background() // Context for Redis operations
		// The generation is read before the store so a concurrent write retires our key
		gen, err := utils.CacheGeneration(ctx, rdb, slotsGenKey)
		useCache := err == nil
		cacheKey := slotsGenPrefix(gen) + filterKey
		var cached []vending.SlotView
		// If cached data found, return it
		if useCache {
			if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		slots, err := catalog.ListSlots(c.Request.Context(), maxQuantity)
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Failed to list slots")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch slots"})
			return
		}
		// Cache the response for future requests
		if useCache {
			_ = utils.SetCache(ctx, rdb, cacheKey, slots, ttl)
		}
		c.JSON(http.StatusOK, slots)
	}
}
