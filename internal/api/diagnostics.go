package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/httputil"
	"github.com/tenantdesk/tenantdesk/internal/monitor"
)

// diagnosticsRequest is a client-side error report.
type diagnosticsRequest struct {
	Name    string         `json:"name"`
	Message string         `json:"message" binding:"required"`
	Stack   string         `json:"stack"`
	Context map[string]any `json:"context"`
	URL     string         `json:"url"`
}

// DiagnosticsHandler accepts error reports from clients and funnels
// them into the error monitor.
type DiagnosticsHandler struct {
	reporter *monitor.Reporter
	log      *logrus.Logger
}

// NewDiagnosticsHandler creates a DiagnosticsHandler.
func NewDiagnosticsHandler(reporter *monitor.Reporter, log *logrus.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{reporter: reporter, log: log}
}

// Report handles POST /logs/error.
func (h *DiagnosticsHandler) Report(c *gin.Context) {
	var req diagnosticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, "invalid request body")
		return
	}

	name := req.Name
	if name == "" {
		name = "ClientError"
	}

	if req.Context == nil {
		req.Context = map[string]any{}
	}
	if tid := c.GetString("tenant_id"); tid != "" {
		req.Context["tenantId"] = tid
	}

	h.reporter.CaptureReport(monitor.Report{
		Name:      name,
		Message:   req.Message,
		Stack:     req.Stack,
		Context:   req.Context,
		URL:       req.URL,
		UserAgent: c.Request.UserAgent(),
		Timestamp: time.Now(),
	})

	httputil.RespondOK(c, http.StatusAccepted, gin.H{"captured": true})
}
