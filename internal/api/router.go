package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/admin"
	"github.com/tenantdesk/tenantdesk/internal/dbpool"
	"github.com/tenantdesk/tenantdesk/internal/middleware"
	"github.com/tenantdesk/tenantdesk/internal/monitor"
	"github.com/tenantdesk/tenantdesk/internal/tenantsync"
	"github.com/tenantdesk/tenantdesk/internal/ws"
)

// SessionFactory builds a sync session for an authenticated connection.
type SessionFactory func(tenantID string, id tenantsync.Identity) *tenantsync.Session

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log          *logrus.Logger
	Pool         *dbpool.Pool
	Hub          *ws.Hub
	Admin        *admin.Service
	Reporter     *monitor.Reporter
	Sessions     SessionFactory
	TenantLookup middleware.TenantLookup
	AdminToken   string
	CORSOrigins  []string
	Version      string
}

// Router-level limits.
const (
	maxBodySize = 1 << 20 // 1 MB
	rateLimit   = 100     // requests per second per IP
	rateBurst   = 200     // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Hub, log, deps.Version)
	companies := NewCompanyHandler(deps.Admin, log)
	users := NewUserHandler(deps.Admin, log)
	stats := NewStatsHandler(deps.Admin, log)
	diagnostics := NewDiagnosticsHandler(deps.Reporter, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// Operator surface: single bearer token, server-side only. Plan,
	// status, role changes and deletions never ship to tenant clients.
	adminGroup := api.Group("/admin", middleware.AdminAuth(deps.AdminToken, log))
	adminGroup.GET("/companies", companies.List)
	adminGroup.GET("/companies/:id", companies.Get)
	adminGroup.PATCH("/companies/:id", companies.Update)
	adminGroup.DELETE("/companies/:id", companies.Delete)
	adminGroup.GET("/companies/:id/users", companies.ListUsers)
	adminGroup.POST("/companies/:id/api-key", companies.IssueAPIKey)
	adminGroup.PATCH("/companies/:id/users/:uid/role", users.SetRole)
	adminGroup.DELETE("/companies/:id/users/:uid", users.Delete)
	adminGroup.GET("/users", users.List)
	adminGroup.GET("/stats", stats.GetStats)

	// Tenant surface: per-tenant API key.
	tenantGroup := api.Group("", middleware.TenantAuth(deps.TenantLookup, log))
	tenantGroup.POST("/logs/error", diagnostics.Report)
	tenantGroup.GET("/ws", wsHandler(ctx, log, deps))
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
