package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-sync-backend/internal/model"
	"hostel-sync-backend/internal/requests"
)

// GetServiceRequests handles GET /api/requests. Admins see every request;
// students only their own.
func (h *Handler) GetServiceRequests(c *gin.Context) {
	actor := actorFrom(c)
	all := h.cache.RequestList()

	if actor.IsAdmin() {
		c.JSON(http.StatusOK, all)
		return
	}
	own := make([]model.ServiceRequest, 0, len(all))
	for _, req := range all {
		if req.ProfileID == actor.ID {
			own = append(own, req)
		}
	}
	c.JSON(http.StatusOK, own)
}

type createRequestRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Priority    string `json:"priority"`
	RoomID      string `json:"room_id" binding:"required"`
}

// CreateServiceRequest handles POST /api/requests. New requests always start
// pending and are owned by the caller.
func (h *Handler) CreateServiceRequest(c *gin.Context) {
	var req createRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.requests.Create(c.Request.Context(), actorFrom(c), requests.NewRequest{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    model.Priority(req.Priority),
		RoomID:      req.RoomID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type updateRequestRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

// UpdateServiceRequest handles PATCH /api/requests/{id}.
func (h *Handler) UpdateServiceRequest(c *gin.Context) {
	var req updateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.requests.UpdateStatus(
		c.Request.Context(),
		actorFrom(c),
		c.Param("id"),
		model.RequestStatus(req.Status),
		req.Comment,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
