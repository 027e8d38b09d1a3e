package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tfgRecruit/internal/api/middleware"
	"tfgRecruit/internal/report"
)

type DashboardHandler struct {
	reports *report.Service
}

func NewDashboardHandler(reports *report.Service) *DashboardHandler {
	return &DashboardHandler{reports: reports}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Error("dashboard stats failed", slog.Any("error", err))
		Internal(c, "Failed to fetch dashboard stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
