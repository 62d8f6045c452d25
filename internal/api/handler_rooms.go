package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-sync-backend/internal/model"
)

// roomResponse is the API view of a room with its derived occupancy.
type roomResponse struct {
	model.Room
	Occupants     []string `json:"occupants"`
	OccupantCount int      `json:"occupant_count"`
}

// GetRooms handles GET /api/rooms from the cache snapshot.
func (h *Handler) GetRooms(c *gin.Context) {
	rooms := h.cache.RoomList()
	response := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		occupants := room.Occupants
		if occupants == nil {
			occupants = []string{}
		}
		response = append(response, roomResponse{
			Room:          room,
			Occupants:     occupants,
			OccupantCount: len(occupants),
		})
	}
	c.JSON(http.StatusOK, response)
}

type allocateRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

// AllocateRoom handles POST /api/rooms/{room_id}/allocations.
func (h *Handler) AllocateRoom(c *gin.Context) {
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id is required"})
		return
	}

	if err := h.alloc.AllocateRoom(c.Request.Context(), req.StudentID, c.Param("room_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// DeallocateRoom handles DELETE /api/rooms/{room_id}/allocations/{student_id}.
func (h *Handler) DeallocateRoom(c *gin.Context) {
	err := h.alloc.DeallocateRoom(c.Request.Context(), c.Param("student_id"), c.Param("room_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
