// Package httputil provides shared HTTP response helpers.
package httputil

import "github.com/gin-gonic/gin"

// Envelope is the uniform response shape for the admin API. Success
// responses carry data, failures carry an error message; clients can
// branch on the success flag alone.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// RespondOK writes a success envelope.
func RespondOK(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// RespondError writes a failure envelope and aborts the request.
func RespondError(c *gin.Context, status int, message string) {
	var requestID string
	if rid, exists := c.Get("request_id"); exists {
		if s, ok := rid.(string); ok {
			requestID = s
		}
	}

	c.AbortWithStatusJSON(status, Envelope{
		Success:   false,
		Error:     message,
		RequestID: requestID,
	})
}
