// Package models defines the document shapes stored under the TENANTS
// hierarchy and the aggregates derived from them.
package models

import (
	"time"

	"github.com/tenantdesk/tenantdesk/internal/sanitize"
)

// Root collection and the per-tenant subcollections.
const (
	CollectionTenants = "TENANTS"
	CollectionUsers   = "users"

	CollectionUserLogs        = "user_logs"
	CollectionTenantLogs      = "tenant_logs"
	CollectionOperationalLogs = "operational_logs"

	// CollectionSystemErrors is the global (non-tenant) collection the
	// diagnostics sink writes to.
	CollectionSystemErrors = "system_errors"

	// OperationalCollection/OperationalDocID address the per-tenant
	// operational-state singleton.
	OperationalCollection = "operational_data"
	OperationalDocID      = "current"
)

// Plan is a tenant's subscription plan.
type Plan string

// Tenant plans.
const (
	PlanFree       Plan = "free"
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// TenantStatus is a tenant's operational status.
type TenantStatus string

// Tenant statuses.
const (
	StatusActive    TenantStatus = "active"
	StatusSuspended TenantStatus = "suspended"
	StatusInactive  TenantStatus = "inactive"
)

// Role is a user's role within its tenant.
type Role string

// User roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Tenant is a company document at TENANTS/{id}.
// Plan and Status default to free/active at creation and are mutable
// only through the privileged admin path.
type Tenant struct {
	ID string `json:"id"`

	// Identity.
	BusinessName      string `json:"businessName"`
	Sector            string `json:"sector"`
	CommunicationTone string `json:"communicationTone,omitempty"`
	BrandStyle        string `json:"brandStyle,omitempty"`

	// Business context.
	ServiceType         string `json:"serviceType,omitempty"`
	TeamSize            string `json:"teamSize,omitempty"`
	BusinessDescription string `json:"businessDescription,omitempty"`

	// Operational.
	BusinessHours string `json:"businessHours,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	Country       string `json:"country,omitempty"`
	City          string `json:"city,omitempty"`
	WebsiteURL    string `json:"websiteUrl,omitempty"`

	// Advanced automation context.
	CustomerTypes     string `json:"customerTypes,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`

	Plan      Plan         `json:"plan"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt,omitempty"`
}

// User is a profile document at TENANTS/{tenantId}/users/{userId}.
// TenantID/TenantName are annotations added by the admin fan-out, not
// stored on the document itself.
type User struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId,omitempty"`
	TenantName    string    `json:"tenantName,omitempty"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Country       string    `json:"country,omitempty"`
	City          string    `json:"city,omitempty"`
	Language      string    `json:"language,omitempty"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// PlatformStats is the cross-tenant dashboard aggregate. It is derived
// entirely from the tenant and user listings; no counters are maintained.
type PlatformStats struct {
	TotalTenants  int `json:"totalTenants"`
	TotalUsers    int `json:"totalUsers"`
	ActiveTenants int `json:"activeTenants"`
	RecentSignups int `json:"recentSignups"`
}

// docString reads a string field from a document map, tolerating absence.
func docString(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// docTime parses an RFC 3339 timestamp field; zero time when absent or malformed.
func docTime(data map[string]any, key string) time.Time {
	s, ok := data[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// TenantFromDoc builds a Tenant from a raw document map. Missing plan and
// status fall back to the creation defaults.
func TenantFromDoc(id string, data map[string]any) Tenant {
	t := Tenant{
		ID:                  id,
		BusinessName:        docString(data, "businessName"),
		Sector:              docString(data, "sector"),
		CommunicationTone:   docString(data, "communicationTone"),
		BrandStyle:          docString(data, "brandStyle"),
		ServiceType:         docString(data, "serviceType"),
		TeamSize:            docString(data, "teamSize"),
		BusinessDescription: docString(data, "businessDescription"),
		BusinessHours:       docString(data, "businessHours"),
		Timezone:            docString(data, "timezone"),
		Country:             docString(data, "country"),
		City:                docString(data, "city"),
		WebsiteURL:          docString(data, "websiteUrl"),
		CustomerTypes:       docString(data, "customerTypes"),
		AdditionalContext:   docString(data, "additionalContext"),
		Plan:                Plan(docString(data, "plan")),
		Status:              TenantStatus(docString(data, "status")),
		CreatedAt:           docTime(data, "createdAt"),
		UpdatedAt:           docTime(data, "updatedAt"),
	}

	if t.Plan == "" {
		t.Plan = PlanFree
	}
	if t.Status == "" {
		t.Status = StatusActive
	}

	return t
}

// UserFromDoc builds a User from a raw document map. Role falls back to
// the default user role.
func UserFromDoc(id string, data map[string]any) User {
	u := User{
		ID:            id,
		FullName:      docString(data, "fullName"),
		Email:         docString(data, "email"),
		Phone:         docString(data, "phone"),
		Country:       docString(data, "country"),
		City:          docString(data, "city"),
		Language:      docString(data, "language"),
		Role:          Role(docString(data, "role")),
		EmailVerified: data["emailVerified"] == true,
		CreatedAt:     docTime(data, "createdAt"),
		UpdatedAt:     docTime(data, "updatedAt"),
	}

	if u.Role == "" {
		u.Role = RoleUser
	}

	return u
}

// NewTenantDoc is the default skeleton written by lazy initialization
// when a live subscription observes a missing tenant document.
func NewTenantDoc(now time.Time) map[string]any {
	return map[string]any{
		"businessName": "",
		"sector":       "",
		"plan":         string(PlanFree),
		"status":       string(StatusActive),
		"createdAt":    now.UTC().Format(time.RFC3339),
	}
}

// NewUserDoc is the default skeleton for a missing user document. The
// identity fields come from the external provider and are normalized
// the same way user-entered values are.
func NewUserDoc(fullName, email string, now time.Time) map[string]any {
	return map[string]any{
		"fullName":      sanitize.Input(fullName),
		"email":         sanitize.Email(email),
		"role":          string(RoleUser),
		"emailVerified": false,
		"createdAt":     now.UTC().Format(time.RFC3339),
	}
}
