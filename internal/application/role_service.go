package application

import (
	"context"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/ipede/okta-identity-service/internal/infrastructure/config"
	"go.uber.org/zap"
)

// RoleService handles role assignment and the admin-facing listings
type RoleService struct {
	users  domain.UserRepository
	roles  domain.RoleRepository
	cfg    *config.Config
	logger *zap.Logger
}

func NewRoleService(users domain.UserRepository, roles domain.RoleRepository, cfg *config.Config, logger *zap.Logger) *RoleService {
	return &RoleService{users: users, roles: roles, cfg: cfg, logger: logger}
}

// SetRole replaces the user's entire role set with the single named role,
// creating the role row if it does not yet exist. Role names outside the
// configured allow-list are rejected.
func (s *RoleService) SetRole(ctx context.Context, userID int64, roleName string) (*domain.User, error) {
	if !s.cfg.RoleAllowed(roleName) {
		return nil, domain.ErrInvalidRole
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.users.ReplaceRoles(ctx, userID, roleName); err != nil {
		return nil, err
	}

	s.logger.Info("replaced user role set",
		zap.Int64("user_id", userID), zap.String("role", roleName))
	return s.users.FindByID(ctx, userID)
}

// ListUsers returns all users with their role sets
func (s *RoleService) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	return s.users.List(ctx, limit, offset)
}

// ListRoles returns all roles
func (s *RoleService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	return s.roles.List(ctx)
}
