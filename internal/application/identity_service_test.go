package application

import (
	"context"
	"errors"
	"testing"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func basicUser() *domain.User {
	return &domain.User{
		ID:         1,
		OktaUserID: "00u1abcd",
		Email:      "ada@example.com",
		FullName:   "Ada Lovelace",
		IsActive:   true,
		Roles:      []domain.Role{{ID: 1, Name: domain.RoleBasicUser}},
	}
}

func TestIdentityService_ResolveUser(t *testing.T) {
	ctx := context.Background()

	t.Run("known user with matching profile is returned untouched", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByOktaID", ctx, "00u1abcd").Return(basicUser(), nil)

		service := NewIdentityService(users, zap.NewNop())
		claims := &domain.VerifiedClaims{Subject: "00u1abcd", Email: "ada@example.com", Name: "Ada Lovelace"}

		user, err := service.ResolveUser(ctx, claims, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		users.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "CreateWithRole", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown subject is provisioned with the basic role", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByOktaID", ctx, "00u1abcd").Return(nil, domain.ErrUserNotFound)
		users.On("CreateWithRole", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.OktaUserID == "00u1abcd" && u.Email == "ada@example.com" && u.FullName == "Ada Lovelace"
		}), domain.RoleBasicUser).Return(basicUser(), nil)

		service := NewIdentityService(users, zap.NewNop())
		claims := &domain.VerifiedClaims{Subject: "00u1abcd", Email: "ada@example.com", Name: "Ada Lovelace"}

		user, err := service.ResolveUser(ctx, claims, nil)
		require.NoError(t, err)
		assert.True(t, user.HasRole(domain.RoleBasicUser))
		users.AssertExpectations(t)
	})

	t.Run("lost creation race falls through to the update path", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByOktaID", ctx, "00u1abcd").Return(nil, domain.ErrUserNotFound).Once()
		users.On("CreateWithRole", ctx, mock.Anything, domain.RoleBasicUser).
			Return(nil, domain.ErrUserAlreadyExists)
		users.On("FindByOktaID", ctx, "00u1abcd").Return(basicUser(), nil).Once()

		service := NewIdentityService(users, zap.NewNop())
		claims := &domain.VerifiedClaims{Subject: "00u1abcd", Email: "ada@example.com", Name: "Ada Lovelace"}

		user, err := service.ResolveUser(ctx, claims, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		users.AssertExpectations(t)
	})

	t.Run("email drift triggers a profile update without touching roles", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByOktaID", ctx, "00u1abcd").Return(basicUser(), nil)
		users.On("UpdateProfile", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == "ada.lovelace@example.com" && u.FullName == "Ada Lovelace"
		})).Return(nil)

		service := NewIdentityService(users, zap.NewNop())
		claims := &domain.VerifiedClaims{Subject: "00u1abcd", Email: "ada.lovelace@example.com", Name: "Ada Lovelace"}

		user, err := service.ResolveUser(ctx, claims, nil)
		require.NoError(t, err)
		assert.Equal(t, "ada.lovelace@example.com", user.Email)
		assert.True(t, user.HasRole(domain.RoleBasicUser))
		users.AssertNotCalled(t, "ReplaceRoles", mock.Anything, mock.Anything, mock.Anything)
		users.AssertExpectations(t)
	})

	t.Run("empty claim name never blanks a stored name", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByOktaID", ctx, "00u1abcd").Return(basicUser(), nil)

		service := NewIdentityService(users, zap.NewNop())
		claims := &domain.VerifiedClaims{Subject: "00u1abcd", Email: "ada@example.com"}

		user, err := service.ResolveUser(ctx, claims, nil)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", user.FullName)
		users.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
	})

	t.Run("enrichment headers win over access token claims", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByOktaID", ctx, "00u1abcd").Return(basicUser(), nil)
		users.On("UpdateProfile", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Email == "userinfo@example.com"
		})).Return(nil)

		service := NewIdentityService(users, zap.NewNop())
		claims := &domain.VerifiedClaims{Subject: "00u1abcd", Email: "token@example.com"}
		enrichment := &domain.ClaimEnrichment{
			Userinfo: map[string]interface{}{"email": "userinfo@example.com"},
		}

		_, err := service.ResolveUser(ctx, claims, enrichment)
		require.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("missing subject", func(t *testing.T) {
		service := NewIdentityService(new(MockUserRepository), zap.NewNop())
		claims := &domain.VerifiedClaims{Email: "ada@example.com"}

		_, err := service.ResolveUser(ctx, claims, nil)
		assert.ErrorIs(t, err, domain.ErrMissingRequiredClaim)
	})

	t.Run("no email resolvable from any source", func(t *testing.T) {
		service := NewIdentityService(new(MockUserRepository), zap.NewNop())
		claims := &domain.VerifiedClaims{Subject: "00u1abcd", Name: "Ada Lovelace"}

		_, err := service.ResolveUser(ctx, claims, &domain.ClaimEnrichment{})
		assert.ErrorIs(t, err, domain.ErrMissingRequiredClaim)
	})

	t.Run("repository failure propagates", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByOktaID", ctx, "00u1abcd").Return(nil, errors.New("connection refused"))

		service := NewIdentityService(users, zap.NewNop())
		claims := &domain.VerifiedClaims{Subject: "00u1abcd", Email: "ada@example.com"}

		_, err := service.ResolveUser(ctx, claims, nil)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrMissingRequiredClaim)
	})
}
