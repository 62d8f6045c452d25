package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hostel-sync-backend/config"
	"hostel-sync-backend/internal/allocation"
	"hostel-sync-backend/internal/auth"
	"hostel-sync-backend/internal/cache"
	"hostel-sync-backend/internal/gateway"
	"hostel-sync-backend/internal/model"
	"hostel-sync-backend/internal/requests"
	"hostel-sync-backend/internal/snapshot"
	"hostel-sync-backend/internal/syncer"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cache    *cache.Store
	alloc    *allocation.Coordinator
	requests *requests.Service
	gw       *gateway.Client
	syncer   *syncer.Syncer
	snap     snapshot.Store
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(
	store *cache.Store,
	alloc *allocation.Coordinator,
	reqSvc *requests.Service,
	gw *gateway.Client,
	sync *syncer.Syncer,
	snap snapshot.Store,
	webpushOptions *webpush.Options,
) *Handler {
	return &Handler{
		cache:    store,
		alloc:    alloc,
		requests: reqSvc,
		gw:       gw,
		syncer:   sync,
		snap:     snap,
		webpush:  webpushOptions,
	}
}

const actorKey = "actor"

// Identity resolves the caller from trusted gateway headers.
func Identity(cfg *config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := auth.Identity{
			ID:   c.GetHeader(cfg.IdentityHeader),
			Name: c.GetHeader(cfg.NameHeader),
			Role: model.Role(c.GetHeader(cfg.RoleHeader)),
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) auth.Identity {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(auth.Identity); ok {
			return actor
		}
	}
	return auth.Identity{}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var validationErr *requests.ValidationError
	var remoteErr *gateway.RemoteError

	switch {
	case errors.Is(err, allocation.ErrRoomUnavailable),
		errors.Is(err, allocation.ErrRoomFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, allocation.ErrNotAllocated),
		errors.Is(err, requests.ErrRequestNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, requests.ErrStatusChangeForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &remoteErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
