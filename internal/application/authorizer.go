package application

import "github.com/ipede/okta-identity-service/internal/domain"

// Authorize reports whether the user may perform an operation guarded by
// requiredRoles. An empty required set means any authenticated user. The
// check is a pure intersection of role names; it never mutates anything.
func Authorize(user *domain.User, requiredRoles []string) bool {
	if user == nil {
		return false
	}
	if len(requiredRoles) == 0 {
		return true
	}
	for _, required := range requiredRoles {
		if user.HasRole(required) {
			return true
		}
	}
	return false
}
