package models

import "fmt"

// Free-text field length caps, checked before any store call.
const (
	maxDescriptionLen   = 1000
	maxCustomerTypesLen = 500
	maxContextLen       = 2000
	maxFieldLen         = 5000
)

// fieldLimits maps fields with a specific cap; everything else uses maxFieldLen.
var fieldLimits = map[string]int{
	"businessDescription": maxDescriptionLen,
	"customerTypes":       maxCustomerTypesLen,
	"additionalContext":   maxContextLen,
}

// ParsePlan validates a plan string.
func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanFree, PlanStarter, PlanPro, PlanEnterprise:
		return Plan(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlan, s)
}

// ParseStatus validates a tenant status string.
func ParseStatus(s string) (TenantStatus, error) {
	switch TenantStatus(s) {
	case StatusActive, StatusSuspended, StatusInactive:
		return TenantStatus(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ParseRole validates a user role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// ValidateFieldValue enforces the per-field length caps on free-text input.
// Non-string values pass through; the store is the arbiter of their shape.
func ValidateFieldValue(field string, value any) error {
	s, ok := value.(string)
	if !ok {
		return nil
	}

	limit, ok := fieldLimits[field]
	if !ok {
		limit = maxFieldLen
	}

	if len(s) > limit {
		return ErrFieldTooLong(field, limit)
	}

	return nil
}
