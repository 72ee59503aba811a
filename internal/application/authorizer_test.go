package application

import (
	"testing"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	editor := &domain.User{Roles: []domain.Role{{Name: domain.RoleEditor}}}
	admin := &domain.User{Roles: []domain.Role{{Name: domain.RoleAdmin}}}
	noRoles := &domain.User{}

	tests := []struct {
		name     string
		user     *domain.User
		required []string
		want     bool
	}{
		{"nil user never passes", nil, nil, false},
		{"empty required set admits any authenticated user", noRoles, nil, true},
		{"empty required set admits user with roles", editor, []string{}, true},
		{"single matching role", editor, []string{domain.RoleEditor}, true},
		{"single non-matching role", editor, []string{domain.RoleAdmin}, false},
		{"any-of semantics, second matches", editor, []string{domain.RoleAdmin, domain.RoleEditor}, true},
		{"any-of semantics, none match", noRoles, []string{domain.RoleEditor, domain.RoleAdmin}, false},
		{"admin does not implicitly hold other roles", admin, []string{domain.RoleEditor}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.user, tt.required))
		})
	}
}
