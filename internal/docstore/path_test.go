package docstore

import (
	"errors"
	"testing"

	"github.com/tenantdesk/tenantdesk/internal/models"
)

func TestValidateDocPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "tenant doc", path: "TENANTS/t1", wantErr: false},
		{name: "nested user doc", path: "TENANTS/t1/users/u1", wantErr: false},
		{name: "log doc", path: "TENANTS/t1/tenant_logs/123_abc", wantErr: false},
		{name: "collection path", path: "TENANTS", wantErr: true},
		{name: "nested collection path", path: "TENANTS/t1/users", wantErr: true},
		{name: "empty", path: "", wantErr: true},
		{name: "empty segment", path: "TENANTS//users/u1", wantErr: true},
		{name: "trailing slash", path: "TENANTS/t1/", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDocPath(tc.path)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ValidateDocPath(%q) = nil, want error", tc.path)
				}
				if !errors.Is(err, models.ErrInvalidPath) {
					t.Errorf("error %v should wrap ErrInvalidPath", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateDocPath(%q) = %v", tc.path, err)
			}
		})
	}
}

func TestValidateCollectionPath(t *testing.T) {
	if err := ValidateCollectionPath("TENANTS"); err != nil {
		t.Errorf("root collection: %v", err)
	}
	if err := ValidateCollectionPath("TENANTS/t1/users"); err != nil {
		t.Errorf("subcollection: %v", err)
	}
	if err := ValidateCollectionPath("TENANTS/t1"); err == nil {
		t.Error("doc path should not validate as collection")
	}
}

func TestDocIDAndCollectionOf(t *testing.T) {
	path := JoinPath("TENANTS", "t1", "users", "u1")

	if got := DocID(path); got != "u1" {
		t.Errorf("DocID = %q, want %q", got, "u1")
	}
	if got := CollectionOf(path); got != "TENANTS/t1/users" {
		t.Errorf("CollectionOf = %q, want %q", got, "TENANTS/t1/users")
	}
	if got := DocID("single"); got != "single" {
		t.Errorf("DocID(single) = %q", got)
	}
}

func TestTenantIDOf(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"TENANTS/t1", "t1"},
		{"TENANTS/t1/users/u1", "t1"},
		{"TENANTS/t1/operational_data/current", "t1"},
		{"system_errors/e1", ""},
		{"TENANTS", ""},
	}

	for _, tc := range tests {
		if got := TenantIDOf(tc.path); got != tc.want {
			t.Errorf("TenantIDOf(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
