package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/admin"
	"github.com/tenantdesk/tenantdesk/internal/httputil"
)

// UserHandler serves the operator endpoints for users across tenants.
type UserHandler struct {
	svc *admin.Service
	log *logrus.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(svc *admin.Service, log *logrus.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// List handles GET /admin/users — every user of every company.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.ListAllUsers(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("listing users")
		respondServiceError(c, err)
		return
	}

	httputil.RespondOK(c, http.StatusOK, users)
}

// setRoleRequest is the PATCH body for a role change.
type setRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SetRole handles PATCH /admin/companies/:id/users/:uid/role.
func (h *UserHandler) SetRole(c *gin.Context) {
	tenantID, userID := c.Param("id"), c.Param("uid")
	if err := validatePathID(tenantID); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
		return
	}
	if err := validatePathID(userID); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
		return
	}

	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, "invalid request body")
		return
	}

	user, err := h.svc.SetUserRole(c.Request.Context(), actorID(c), tenantID, userID, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	httputil.RespondOK(c, http.StatusOK, user)
}

// Delete handles DELETE /admin/companies/:id/users/:uid.
func (h *UserHandler) Delete(c *gin.Context) {
	tenantID, userID := c.Param("id"), c.Param("uid")
	if err := validatePathID(tenantID); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
		return
	}
	if err := validatePathID(userID); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), actorID(c), tenantID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	httputil.RespondOK(c, http.StatusOK, gin.H{"deleted": userID})
}
