package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stockbooks/backend/internal/interfaces/http/dto"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// SystemHandler handles liveness, readiness and system info endpoints
type SystemHandler struct {
	BaseHandler
	db        Pinger
	appName   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(appName string, db Pinger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		appName:   appName,
		startTime: time.Now(),
	}
}

// Healthz is the liveness probe; it answers as long as the process is up
func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
}

// Readyz is the readiness probe; it fails when the database is unreachable
func (h *SystemHandler) Readyz(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(
				dto.ErrCodeInternal, "database unreachable", ""))
			return
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ready"}))
}

// SystemInfoResponse holds basic process information
type SystemInfoResponse struct {
	Name      string `json:"name"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Info returns basic process information
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.appName,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// RegisterRoutes registers the system info route. The health probes are
// registered on the engine root, outside the versioned API group.
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", h.Info)
	}
}
