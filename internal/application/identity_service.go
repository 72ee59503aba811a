package application

import (
	"context"
	"errors"

	"github.com/ipede/okta-identity-service/internal/domain"
	"go.uber.org/zap"
)

// IdentityService reconciles verified token claims with the local user
// store. It owns the User lifecycle: auto-provisioning on first sight and
// profile-drift updates afterwards.
type IdentityService struct {
	users  domain.UserRepository
	logger *zap.Logger
}

func NewIdentityService(users domain.UserRepository, logger *zap.Logger) *IdentityService {
	return &IdentityService{users: users, logger: logger}
}

// ResolveUser maps verified claims to a local user. Unknown subjects are
// provisioned with ROLE_BASIC_USER in a single transaction; a lost creation
// race (unique violation on the subject id) falls through to the update
// path instead of failing the request. Email and name drift is reconciled
// in place without touching roles.
func (s *IdentityService) ResolveUser(ctx context.Context, claims *domain.VerifiedClaims, enrichment *domain.ClaimEnrichment) (*domain.User, error) {
	email, name := claims.ResolveProfile(enrichment)
	if claims.Subject == "" || email == "" {
		return nil, domain.ErrMissingRequiredClaim
	}

	user, err := s.users.FindByOktaID(ctx, claims.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		created, createErr := s.users.CreateWithRole(ctx, &domain.User{
			OktaUserID: claims.Subject,
			Email:      email,
			FullName:   name,
		}, domain.RoleBasicUser)
		if createErr == nil {
			s.logger.Info("auto-provisioned user with basic role",
				zap.String("okta_user_id", claims.Subject), zap.String("email", email))
			return created, nil
		}
		if !errors.Is(createErr, domain.ErrUserAlreadyExists) {
			return nil, createErr
		}
		// Someone else created the subject first; re-read and reconcile.
		if user, err = s.users.FindByOktaID(ctx, claims.Subject); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if user.Email != email || (name != "" && user.FullName != name) {
		user.Email = email
		if name != "" {
			user.FullName = name
		}
		if err := s.users.UpdateProfile(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("updated user profile from claims",
			zap.String("okta_user_id", user.OktaUserID))
	}

	return user, nil
}
