package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/anonqa/internal/api/response"
	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/service"
)

// Handler handles admin API requests
type Handler struct {
	adminService *service.AdminService
}

// NewHandler creates a new admin handler
func NewHandler(adminService *service.AdminService) *Handler {
	return &Handler{adminService: adminService}
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/usage", h.ListUsage)
	r.GET("/stats", h.GetStats)
}

// ListUsage lists recent AI usage records, filtered by actor and action
func (h *Handler) ListUsage(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultUsageLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}

	filter := domain.UsageFilter{
		ActorID:    c.Query("actor"),
		Action:     domain.UsageAction(c.Query("action")),
		QuestionID: c.Query("questionId"),
	}

	resp, err := h.adminService.ListUsage(c.Request.Context(), filter, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Stats

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.adminService.GetStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
