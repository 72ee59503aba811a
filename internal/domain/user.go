package domain

import (
	"context"
	"time"
)

// Role names known to the system. The model is not restricted to these;
// the allow-list for role assignment comes from configuration.
const (
	RoleBasicUser = "ROLE_BASIC_USER"
	RoleEditor    = "ROLE_EDITOR"
	RoleAdmin     = "ROLE_ADMIN"
)

// RoleDescription returns the canonical description for the fixed role
// vocabulary; custom roles get an empty description.
func RoleDescription(name string) string {
	switch name {
	case RoleBasicUser:
		return "Basic user role"
	case RoleEditor:
		return "Editor Role"
	case RoleAdmin:
		return "Administrator Role"
	}
	return ""
}

// Role represents an authorization role
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// User represents a locally provisioned user correlated to an Okta subject.
// OktaUserID is immutable once set and is the sole correlation key back to
// the identity provider.
type User struct {
	ID         int64     `json:"id"`
	OktaUserID string    `json:"okta_user_id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Roles      []Role    `json:"roles"`
}

// HasRole checks if the user holds a role with the given name
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// RoleNames returns the names of all roles assigned to the user
func (u *User) RoleNames() []string {
	names := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		names[i] = r.Name
	}
	return names
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by its local ID, including roles
	FindByID(ctx context.Context, id int64) (*User, error)

	// FindByOktaID finds a user by its Okta subject identifier, including roles
	FindByOktaID(ctx context.Context, oktaID string) (*User, error)

	// FindByEmail finds a user by email, including roles
	FindByEmail(ctx context.Context, email string) (*User, error)

	// CreateWithRole creates a user and assigns the named role in a single
	// transaction, creating the role row if it does not yet exist. Returns
	// ErrUserAlreadyExists when another writer created the same subject first.
	CreateWithRole(ctx context.Context, user *User, roleName string) (*User, error)

	// UpdateProfile updates the mutable profile fields (email, full name)
	UpdateProfile(ctx context.Context, user *User) error

	// ReplaceRoles replaces the user's entire role set with the named role,
	// creating the role row if it does not yet exist
	ReplaceRoles(ctx context.Context, userID int64, roleName string) error

	// List lists all users with pagination
	List(ctx context.Context, limit, offset int) ([]*User, error)
}

// RoleRepository defines the interface for role persistence
type RoleRepository interface {
	// FindByName finds a role by its unique name
	FindByName(ctx context.Context, name string) (*Role, error)

	// GetOrCreate returns the role with the given name, creating it if absent
	GetOrCreate(ctx context.Context, name, description string) (*Role, error)

	// List lists all roles
	List(ctx context.Context) ([]*Role, error)
}

// TokenVerifier validates a raw bearer token and returns its verified claims
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*VerifiedClaims, error)
}

// IdentityResolver maps verified claims to a local user, provisioning on
// first sight and reconciling profile drift afterwards
type IdentityResolver interface {
	ResolveUser(ctx context.Context, claims *VerifiedClaims, enrichment *ClaimEnrichment) (*User, error)
}
