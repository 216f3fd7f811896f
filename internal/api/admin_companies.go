// Package api provides HTTP handlers for the admin console.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/admin"
	"github.com/tenantdesk/tenantdesk/internal/httputil"
)

// CompanyHandler serves the operator endpoints for tenant companies.
type CompanyHandler struct {
	svc *admin.Service
	log *logrus.Logger
}

// NewCompanyHandler creates a CompanyHandler.
func NewCompanyHandler(svc *admin.Service, log *logrus.Logger) *CompanyHandler {
	return &CompanyHandler{svc: svc, log: log}
}

// List handles GET /admin/companies.
func (h *CompanyHandler) List(c *gin.Context) {
	tenants, err := h.svc.ListTenants(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("listing companies")
		respondServiceError(c, err)
		return
	}

	httputil.RespondOK(c, http.StatusOK, tenants)
}

// Get handles GET /admin/companies/:id.
func (h *CompanyHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
		return
	}

	tenant, err := h.svc.GetTenant(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	httputil.RespondOK(c, http.StatusOK, tenant)
}

// updateCompanyRequest is the PATCH body; empty fields are left unchanged.
type updateCompanyRequest struct {
	Plan   string `json:"plan"`
	Status string `json:"status"`
}

// Update handles PATCH /admin/companies/:id.
func (h *CompanyHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
		return
	}

	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, "invalid request body")
		return
	}

	tenant, err := h.svc.SetTenantPlanAndStatus(c.Request.Context(), actorID(c), id, req.Plan, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	httputil.RespondOK(c, http.StatusOK, tenant)
}

// Delete handles DELETE /admin/companies/:id — removes the company and
// everything underneath it.
func (h *CompanyHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
		return
	}

	if err := h.svc.DeleteTenant(c.Request.Context(), actorID(c), id); err != nil {
		respondServiceError(c, err)
		return
	}

	httputil.RespondOK(c, http.StatusOK, gin.H{"deleted": id})
}

// ListUsers handles GET /admin/companies/:id/users.
func (h *CompanyHandler) ListUsers(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
		return
	}

	tenant, err := h.svc.GetTenant(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	users, err := h.svc.ListTenantUsers(c.Request.Context(), id, tenant.BusinessName)
	if err != nil {
		h.log.WithError(err).Error("listing company users")
		respondServiceError(c, err)
		return
	}

	httputil.RespondOK(c, http.StatusOK, users)
}

// IssueAPIKey handles POST /admin/companies/:id/api-key — rotates the
// company's sync API key and returns the new plaintext key once.
func (h *CompanyHandler) IssueAPIKey(c *gin.Context) {
	id := c.Param("id")
	if err := validatePathID(id); err != nil {
		respondError(c, http.StatusBadRequest, errLabelInvalidRequest, err.Error())
		return
	}

	key, err := h.svc.IssueAPIKey(c.Request.Context(), actorID(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	httputil.RespondOK(c, http.StatusOK, gin.H{"apiKey": key})
}
