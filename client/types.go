package client

import "time"

// Company is a tenant company as returned by the admin API.
type Company struct {
	ID                  string    `json:"id"`
	BusinessName        string    `json:"businessName"`
	Sector              string    `json:"sector"`
	CommunicationTone   string    `json:"communicationTone,omitempty"`
	BrandStyle          string    `json:"brandStyle,omitempty"`
	ServiceType         string    `json:"serviceType,omitempty"`
	TeamSize            string    `json:"teamSize,omitempty"`
	BusinessDescription string    `json:"businessDescription,omitempty"`
	BusinessHours       string    `json:"businessHours,omitempty"`
	Timezone            string    `json:"timezone,omitempty"`
	Country             string    `json:"country,omitempty"`
	City                string    `json:"city,omitempty"`
	WebsiteURL          string    `json:"websiteUrl,omitempty"`
	CustomerTypes       string    `json:"customerTypes,omitempty"`
	AdditionalContext   string    `json:"additionalContext,omitempty"`
	Plan                string    `json:"plan"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt,omitempty"`
}

// User is a tenant user as returned by the admin API.
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
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// PlatformStats is the cross-tenant dashboard aggregate.
type PlatformStats struct {
	TotalTenants  int `json:"totalTenants"`
	TotalUsers    int `json:"totalUsers"`
	ActiveTenants int `json:"activeTenants"`
	RecentSignups int `json:"recentSignups"`
}

// UpdateCompanyRequest changes a company's plan and/or status; empty
// fields are left unchanged.
type UpdateCompanyRequest struct {
	Plan   string `json:"plan,omitempty"`
	Status string `json:"status,omitempty"`
}

// ErrorReport is a client-side error forwarded to the diagnostics sink.
type ErrorReport struct {
	Name    string         `json:"name,omitempty"`
	Message string         `json:"message"`
	Stack   string         `json:"stack,omitempty"`
	Context map[string]any `json:"context,omitempty"`
	URL     string         `json:"url,omitempty"`
}

// HealthResponse is the liveness check payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Connections   int     `json:"connections"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadinessResponse is the readiness check payload.
type ReadinessResponse struct {
	Status        string            `json:"status"`
	SchemaVersion int               `json:"schema_version"`
	Checks        map[string]string `json:"checks"`
}
