package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hostel-sync-backend/config"
	"hostel-sync-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()
	if cfg.RequestIPHeader != "" {
		// Client IP is the rate-limit key for unidentified callers.
		r.TrustedPlatform = cfg.RequestIPHeader
	}

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.IdentityHeader)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL, cfg.IdentityHeader)

	api := r.Group("/api")
	api.Use(rateLimiter, Identity(cfg))
	{
		// Read-only collection views served from the entity cache.
		api.GET("/rooms", caching, h.GetRooms)
		api.GET("/notices", caching, h.GetNotices)
		api.GET("/rules", caching, h.GetHostelRules)
		api.GET("/requests", h.GetServiceRequests)

		// Student management.
		api.GET("/students", h.GetStudents)
		api.POST("/students", RequireAdmin(), h.CreateStudent)
		api.PATCH("/students/:id", h.UpdateStudent)
		api.DELETE("/students/:id", RequireAdmin(), h.DeleteStudent)
		api.GET("/students/:id/room", h.GetStudentRoom)
		api.GET("/students/:id/payments", h.GetStudentPayments)

		// Room allocation.
		api.POST("/rooms/:room_id/allocations", RequireAdmin(), h.AllocateRoom)
		api.DELETE("/rooms/:room_id/allocations/:student_id", RequireAdmin(), h.DeallocateRoom)

		// Service-request workflow.
		api.POST("/requests", h.CreateServiceRequest)
		api.PATCH("/requests/:id", h.UpdateServiceRequest)

		// Push subscriptions.
		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
