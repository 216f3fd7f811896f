package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tenantdesk/tenantdesk/internal/httputil"
)

// respondError delegates to the shared httputil.RespondError helper.
func respondError(c *gin.Context, status int, message string) {
	httputil.RespondError(c, status, message)
}
