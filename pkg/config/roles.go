package config

import "strings"

// DefaultAdminRole is used when ADMIN_ROLES is empty
const DefaultAdminRole = "admin"

// ParseAdminRoleNames parses a comma-separated list of admin role names.
// Returns a slice of trimmed, non-empty role names, or [DefaultAdminRole].
func ParseAdminRoleNames(envValue string) []string {
	parts := strings.Split(envValue, ",")
	roles := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			roles = append(roles, trimmed)
		}
	}

	if len(roles) == 0 {
		return []string{DefaultAdminRole}
	}
	return roles
}

// IsAdminRole checks if the given role is in the list of admin roles.
// Performs case-insensitive comparison.
func IsAdminRole(role string, adminRoles []string) bool {
	if role == "" {
		return false
	}
	for _, adminRole := range adminRoles {
		if strings.EqualFold(adminRole, role) {
			return true
		}
	}
	return false
}
