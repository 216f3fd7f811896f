package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParsePlan(t *testing.T) {
	for _, valid := range []string{"free", "starter", "pro", "enterprise"} {
		if _, err := ParsePlan(valid); err != nil {
			t.Errorf("ParsePlan(%q) = %v", valid, err)
		}
	}

	_, err := ParsePlan("platinum")
	if !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("ParsePlan(platinum) = %v, want ErrInvalidPlan", err)
	}

	if _, err := ParsePlan(""); err == nil {
		t.Error("empty plan should not parse")
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"active", "suspended", "inactive"} {
		if _, err := ParseStatus(valid); err != nil {
			t.Errorf("ParseStatus(%q) = %v", valid, err)
		}
	}

	_, err := ParseStatus("deleted")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ParseStatus(deleted) = %v, want ErrInvalidStatus", err)
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"user", "admin"} {
		if _, err := ParseRole(valid); err != nil {
			t.Errorf("ParseRole(%q) = %v", valid, err)
		}
	}

	_, err := ParseRole("superadmin")
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("ParseRole(superadmin) = %v, want ErrInvalidRole", err)
	}
}

func TestValidateFieldValue(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   any
		wantErr bool
	}{
		{name: "short description", field: "businessDescription", value: "ok", wantErr: false},
		{name: "description at limit", field: "businessDescription", value: strings.Repeat("x", 1000), wantErr: false},
		{name: "description over limit", field: "businessDescription", value: strings.Repeat("x", 1001), wantErr: true},
		{name: "customer types over limit", field: "customerTypes", value: strings.Repeat("x", 501), wantErr: true},
		{name: "context over limit", field: "additionalContext", value: strings.Repeat("x", 2001), wantErr: true},
		{name: "unknown field default cap", field: "businessName", value: strings.Repeat("x", 5001), wantErr: true},
		{name: "unknown field under cap", field: "businessName", value: strings.Repeat("x", 4999), wantErr: false},
		{name: "non-string passes", field: "businessDescription", value: 12345, wantErr: false},
		{name: "bool passes", field: "emailVerified", value: true, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFieldValue(tc.field, tc.value)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTenantFromDocDefaults(t *testing.T) {
	tenant := TenantFromDoc("t1", map[string]any{"businessName": "Acme"})

	if tenant.ID != "t1" {
		t.Errorf("ID = %q", tenant.ID)
	}
	if tenant.Plan != PlanFree {
		t.Errorf("Plan = %q, want free", tenant.Plan)
	}
	if tenant.Status != StatusActive {
		t.Errorf("Status = %q, want active", tenant.Status)
	}
	if tenant.BusinessName != "Acme" {
		t.Errorf("BusinessName = %q", tenant.BusinessName)
	}
}

func TestUserFromDocDefaults(t *testing.T) {
	user := UserFromDoc("u1", map[string]any{"fullName": "Jo", "email": "jo@example.com"})

	if user.Role != RoleUser {
		t.Errorf("Role = %q, want user", user.Role)
	}
	if user.Email != "jo@example.com" {
		t.Errorf("Email = %q", user.Email)
	}
}

func TestNewUserDocNormalizesIdentity(t *testing.T) {
	doc := NewUserDoc("  <b>Jo</b> Doe  ", "  Jo.Doe@Example.COM ", time.Now())

	if doc["fullName"] != "bJo/b Doe" {
		t.Errorf("fullName = %q, want markup stripped", doc["fullName"])
	}
	if doc["email"] != "jo.doe@example.com" {
		t.Errorf("email = %q, want lowercase trimmed", doc["email"])
	}
	if doc["role"] != string(RoleUser) {
		t.Errorf("role = %q", doc["role"])
	}
}
