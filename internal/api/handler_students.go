package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-sync-backend/internal/model"
)

// GetStudents handles GET /api/students. Admins see every profile;
// other callers only their own.
func (h *Handler) GetStudents(c *gin.Context) {
	actor := actorFrom(c)
	profiles := h.cache.ProfileList()

	if actor.IsAdmin() {
		c.JSON(http.StatusOK, profiles)
		return
	}
	own := make([]model.Profile, 0, 1)
	for _, p := range profiles {
		if p.ID == actor.ID {
			own = append(own, p)
		}
	}
	c.JSON(http.StatusOK, own)
}

type createStudentRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	AdmissionNumber string `json:"admission_number"`
	Department      string `json:"department"`
	YearOfStudy     int    `json:"year_of_study"`
}

// CreateStudent handles POST /api/students.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile := model.Profile{
		Name:            req.Name,
		Email:           req.Email,
		Role:            model.RoleStudent,
		AdmissionNumber: req.AdmissionNumber,
		Department:      req.Department,
		YearOfStudy:     req.YearOfStudy,
		PaymentStatus:   model.PaymentPending,
	}
	if err := h.gw.CreateProfile(c.Request.Context(), profile); err != nil {
		writeError(c, err)
		return
	}
	if err := h.syncer.RefreshProfiles(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type updateStudentRequest struct {
	Name            string `json:"name"`
	Department      string `json:"department"`
	YearOfStudy     int    `json:"year_of_study"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	AdmissionNumber string `json:"admission_number"`
	PaymentStatus   string `json:"payment_status"`
}

// UpdateStudent handles PATCH /api/students/{id}. Role is immutable and
// never part of the patch. Non-admins may only edit their own contact
// fields; admission number and payment standing are admin-only.
func (h *Handler) UpdateStudent(c *gin.Context) {
	actor := actorFrom(c)
	id := c.Param("id")
	if !actor.IsAdmin() && actor.ID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another profile"})
		return
	}

	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := map[string]any{}
	if req.Name != "" {
		patch["name"] = req.Name
	}
	if req.Department != "" {
		patch["department"] = req.Department
	}
	if req.YearOfStudy != 0 {
		patch["year_of_study"] = req.YearOfStudy
	}
	if req.Phone != "" {
		patch["phone"] = req.Phone
	}
	if req.Address != "" {
		patch["address"] = req.Address
	}
	if actor.IsAdmin() {
		if req.AdmissionNumber != "" {
			patch["admission_number"] = req.AdmissionNumber
		}
		if req.PaymentStatus != "" {
			patch["payment_status"] = req.PaymentStatus
		}
	}
	if len(patch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no updatable fields in request"})
		return
	}

	if err := h.gw.UpdateProfile(c.Request.Context(), id, patch); err != nil {
		writeError(c, err)
		return
	}
	if err := h.syncer.RefreshProfiles(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteStudent handles DELETE /api/students/{id}, completing any current
// allocation first.
func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.alloc.RemoveStudent(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetStudentRoom handles GET /api/students/{id}/room from the cache.
func (h *Handler) GetStudentRoom(c *gin.Context) {
	id := c.Param("id")
	profile, ok := h.cache.ProfileByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	if profile.RoomID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "student has no current room"})
		return
	}
	room, ok := h.cache.RoomByID(profile.RoomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "allocated room missing from cache"})
		return
	}
	c.JSON(http.StatusOK, room)
}

// GetStudentPayments handles GET /api/students/{id}/payments. Payments are
// fetched on demand rather than mirrored; they are read-only here.
func (h *Handler) GetStudentPayments(c *gin.Context) {
	actor := actorFrom(c)
	id := c.Param("id")
	if !actor.IsAdmin() && actor.ID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot view another student's payments"})
		return
	}

	payments, err := h.gw.FetchPayments(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}
