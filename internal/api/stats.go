package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/admin"
	"github.com/tenantdesk/tenantdesk/internal/httputil"
	"github.com/tenantdesk/tenantdesk/internal/metrics"
)

// StatsHandler serves the platform statistics endpoint.
type StatsHandler struct {
	svc *admin.Service
	log *logrus.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(svc *admin.Service, log *logrus.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, log: log}
}

// GetStats handles GET /admin/stats. Aggregation failures degrade to
// all-zero counters inside the service; this endpoint never errors.
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats := h.svc.PlatformStats(c.Request.Context())

	metrics.TenantCount.Set(float64(stats.TotalTenants))
	metrics.UserCount.Set(float64(stats.TotalUsers))

	httputil.RespondOK(c, http.StatusOK, stats)
}
