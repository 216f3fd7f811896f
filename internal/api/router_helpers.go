package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/middleware"
	"github.com/tenantdesk/tenantdesk/internal/tenantsync"
	"github.com/tenantdesk/tenantdesk/internal/ws"
)

// actorID returns the authenticated operator identity set by the admin
// auth middleware.
func actorID(c *gin.Context) string {
	if id := c.GetString("actor_id"); id != "" {
		return id
	}
	return "platform-admin"
}

// wsHandler upgrades an authenticated request to a WebSocket connection
// with its own sync session. Identity comes from query parameters; the
// tenant comes from the API key, never from the client.
func wsHandler(appCtx context.Context, log *logrus.Logger, deps *RouterDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetString("tenant_id")
		if tenantID == "" {
			respondError(c, http.StatusUnauthorized, errLabelUnauthorized, "missing tenant")
			return
		}

		userID := c.Query("user_id")
		if err := validatePathID(userID); err != nil {
			respondError(c, http.StatusBadRequest, errLabelInvalidRequest, "invalid user_id")
			return
		}

		// Extract the raw API key for periodic re-validation.
		apiKey := middleware.ExtractBearerToken(c)

		// CORS origins are reused as WebSocket origin patterns. The config
		// validator ensures these are safe host patterns (no wildcards etc.).
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       deps.CORSOrigins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Error("websocket accept failed")

			return
		}

		session := deps.Sessions(tenantID, tenantsync.Identity{
			UserID:   userID,
			Email:    c.Query("email"),
			FullName: c.Query("name"),
		})

		// Derive a context that cancels when either the server shuts down or the request ends.
		wsCtx, wsCancel := context.WithCancel(appCtx)
		go func() {
			select {
			case <-c.Request.Context().Done():
				wsCancel()
			case <-wsCtx.Done():
			}
		}()

		if err := session.Start(wsCtx); err != nil {
			log.WithError(err).WithField("tenant_id", tenantID).Error("session start failed")
			conn.Close(websocket.StatusInternalError, "session unavailable") //nolint:errcheck // best-effort
			wsCancel()

			return
		}

		client := ws.NewClient(deps.Hub, conn, session, tenantID, deps.TenantLookup, apiKey)
		deps.Hub.Register(client)

		go client.SessionPump()
		go client.WritePump(wsCtx)
		client.ReadPump(wsCtx)
		wsCancel()
	}
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if rid, exists := c.Get(middleware.RequestIDKey); exists {
			fields["request_id"] = rid
		}
		if tid := c.GetString("tenant_id"); tid != "" {
			fields["tenant_id"] = tid
		}
		log.WithFields(fields).Info("request")
	}
}

// validatePathID checks that a path parameter ID is non-empty, within
// length limits, and free of path separators and control characters, so
// an ID can never address anything but a direct child document.
func validatePathID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if len(id) > 255 {
		return fmt.Errorf("id exceeds maximum length of 255")
	}
	for _, r := range id {
		if r == '/' || r == '\\' || r < 0x20 || r == 0x7f {
			return fmt.Errorf("id contains invalid character")
		}
	}
	return nil
}
