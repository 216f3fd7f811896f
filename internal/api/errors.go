package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tenantdesk/tenantdesk/internal/httputil"
	"github.com/tenantdesk/tenantdesk/internal/metrics"
	"github.com/tenantdesk/tenantdesk/internal/models"
)

// Error code labels for the errors metric.
const (
	errLabelInvalidRequest = "invalid_request"
	errLabelNotFound       = "not_found"
	errLabelInternal       = "internal_error"
	errLabelUnauthorized   = "unauthorized"
)

// respondError writes a failure envelope and counts the error.
func respondError(c *gin.Context, status int, label, message string) {
	metrics.ErrorsTotal.WithLabelValues(label).Inc()
	httputil.RespondError(c, status, message)
}

// respondServiceError maps a service-layer error onto the envelope:
// missing documents become 404, validation failures 400, everything
// else a generic 500 that never leaks internals.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondError(c, http.StatusNotFound, errLabelNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidPlan),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidRole),
		errors.Is(err, models.ErrInvalidPath):
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, errLabelInternal, "internal server error")
	}
}
