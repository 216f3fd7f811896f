// Package metrics defines Prometheus metrics for tenantdesk.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantdesk_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantdesk_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	DocOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantdesk_docstore_operations_total",
			Help: "Document store operations by kind",
		},
		[]string{"op"},
	)

	AuditQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantdesk_audit_queue_depth",
			Help: "Pending entries in the audit write queue",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantdesk_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	TenantCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantdesk_tenants_total",
			Help: "Total tenant count from the last stats read",
		},
	)

	UserCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantdesk_users_total",
			Help: "Total user count from the last stats read",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		DocOps, AuditQueueDepth, WSConnections,
		TenantCount, UserCount,
	)
}
