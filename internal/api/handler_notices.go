package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNotices handles GET /api/notices from the cache snapshot.
func (h *Handler) GetNotices(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.NoticeList())
}

// GetHostelRules handles GET /api/rules from the cache snapshot.
func (h *Handler) GetHostelRules(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.RuleList())
}
