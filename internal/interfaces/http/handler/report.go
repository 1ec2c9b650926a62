package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	reportapp "github.com/stockbooks/backend/internal/application/report"
)

// defaultSummaryWindowDays is the trailing window when none is requested
const defaultSummaryWindowDays = 30

// ReportHandler handles reporting API endpoints
type ReportHandler struct {
	BaseHandler
	service *reportapp.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *reportapp.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Summary returns the tenant KPI snapshot over a trailing window of days
func (h *ReportHandler) Summary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	days := defaultSummaryWindowDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "days must be a positive integer")
			return
		}
		days = parsed
	}

	since := time.Now().AddDate(0, 0, -days)
	summary, err := h.service.Summary(c.Request.Context(), tenantID, since)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// RegisterRoutes registers all report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("/summary", h.Summary)
	}
}
