// Package handlers serves the widget page, its JSON API and the /-/ probes.
package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// BuildInfo is stamped in through ldflags.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo fills GoVersion from the running binary.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	return BuildInfo{Version: version, Commit: commit, BuildTime: buildTime, GoVersion: runtime.Version()}
}

// SyncProbe is the part of the sync engine readiness reports on.
type SyncProbe interface {
	State() app.SyncState
	LastReport() (app.SyncReport, bool)
}

// HealthHandler serves /-/live, /-/ready, /-/build and /-/metrics.
type HealthHandler struct {
	registry  ports.HealthRegistry
	buildInfo BuildInfo
	sync      SyncProbe
}

// NewHealthHandler builds the probe handler. A nil registry reports healthy.
func NewHealthHandler(registry ports.HealthRegistry, buildInfo BuildInfo) *HealthHandler {
	return &HealthHandler{registry: registry, buildInfo: buildInfo}
}

// WithSync adds the sync engine's position to readiness responses. A failed
// last cycle is reported but never makes the widget unready; the remote is
// optional.
func (h *HealthHandler) WithSync(probe SyncProbe) *HealthHandler {
	h.sync = probe
	return h
}

type readinessResponse struct {
	Status string                        `json:"status"`
	Checks map[string]*ports.CheckResult `json:"checks,omitempty"`
	Sync   *syncReadiness                `json:"sync,omitempty"`
}

type syncReadiness struct {
	State       string     `json:"state"`
	LastCycleAt *time.Time `json:"lastCycleAt,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	RemoteError string     `json:"remoteError,omitempty"`
}

// Liveness never checks dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness answers 503 only when a required check fails.
func (h *HealthHandler) Readiness(c *gin.Context) {
	resp := readinessResponse{Status: string(ports.HealthStatusHealthy)}

	if h.registry != nil {
		result := h.registry.CheckAll(c.Request.Context())
		resp.Status = string(result.Status)
		resp.Checks = result.Checks
	}

	if h.sync != nil {
		resp.Sync = &syncReadiness{State: string(h.sync.State())}
		if report, ok := h.sync.LastReport(); ok {
			finished := report.FinishedAt
			resp.Sync.LastCycleAt = &finished
			resp.Sync.LastError = report.Error
			resp.Sync.RemoteError = report.RemoteError
		}
	}

	code := http.StatusOK
	if resp.Status == string(ports.HealthStatusUnhealthy) {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, resp)
}

// BuildInfoHandler serves /-/build.
func (h *HealthHandler) BuildInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.buildInfo)
}

// MetricsHandler exposes the default Prometheus registry, which holds the
// sync cycle metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RegisterHealthRoutes mounts the probes on rg.
func (h *HealthHandler) RegisterHealthRoutes(rg *gin.RouterGroup) {
	rg.GET("/live", h.Liveness)
	rg.GET("/ready", h.Readiness)
	rg.GET("/build", h.BuildInfoHandler)
	rg.GET("/metrics", gin.WrapH(MetricsHandler()))
}

// RegisterHealthRoutesOnEngine mounts the probes under /-/.
func (h *HealthHandler) RegisterHealthRoutesOnEngine(engine *gin.Engine) {
	h.RegisterHealthRoutes(engine.Group("/-"))
}
