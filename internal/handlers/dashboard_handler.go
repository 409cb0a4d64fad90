package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-service/internal/middleware"
	"crm-service/internal/services"
)

// DashboardHandler serves the aggregated reporting endpoint
type DashboardHandler struct {
	reports *services.ReportService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(reports *services.ReportService) *DashboardHandler {
	return &DashboardHandler{reports: reports}
}

// Metrics godoc
// @Summary Dashboard metrics
// @Description Returns the aggregated dashboard for the caller's scope:
// @Description revenue, conversion rate, status funnel and monthly revenue
// @Tags dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) Metrics(c *gin.Context) {
	sc := middleware.GetScope(c)

	metrics, err := h.reports.Dashboard(c.Request.Context(), sc)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "Dashboard metrics computed", metrics)
}
