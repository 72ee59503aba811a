package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(ctx context.Context, rawToken string) (*domain.VerifiedClaims, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerifiedClaims), args.Error(1)
}

type MockIdentityResolver struct {
	mock.Mock
}

func (m *MockIdentityResolver) ResolveUser(ctx context.Context, claims *domain.VerifiedClaims, enrichment *domain.ClaimEnrichment) (*domain.User, error) {
	args := m.Called(ctx, claims, enrichment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func testClaims() *domain.VerifiedClaims {
	return &domain.VerifiedClaims{Subject: "00u1abcd", Email: "ada@example.com"}
}

func testUser(roleNames ...string) *domain.User {
	roles := make([]domain.Role, len(roleNames))
	for i, name := range roleNames {
		roles[i] = domain.Role{Name: name}
	}
	return &domain.User{ID: 1, OktaUserID: "00u1abcd", Email: "ada@example.com", Roles: roles}
}

// okHandler records whether the chain reached it and which user was in context
func okHandler(t *testing.T, gotUser **domain.User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := UserFromContext(r.Context()); ok {
			*gotUser = user
		}
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestAuthenticator(t *testing.T) {
	t.Run("valid token puts the resolved user into context", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		identity := new(MockIdentityResolver)
		verifier.On("Verify", mock.Anything, "good-token").Return(testClaims(), nil)
		identity.On("ResolveUser", mock.Anything, testClaims(), (*domain.ClaimEnrichment)(nil)).
			Return(testUser(domain.RoleBasicUser), nil)

		var gotUser *domain.User
		middleware := NewAuthMiddleware(verifier, identity, zap.NewNop())
		handler := middleware.Authenticator(okHandler(t, &gotUser))

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotUser)
		assert.Equal(t, "00u1abcd", gotUser.OktaUserID)
	})

	t.Run("missing authorization header", func(t *testing.T) {
		middleware := NewAuthMiddleware(new(MockTokenVerifier), new(MockIdentityResolver), zap.NewNop())
		handler := middleware.Authenticator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not be reached")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token_missing", errorCode(t, rec))
	})

	t.Run("non-bearer scheme", func(t *testing.T) {
		middleware := NewAuthMiddleware(new(MockTokenVerifier), new(MockIdentityResolver), zap.NewNop())
		handler := middleware.Authenticator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not be reached")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token_missing", errorCode(t, rec))
	})

	t.Run("expired token sets the challenge header", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		verifier.On("Verify", mock.Anything, "stale").Return(nil, domain.ErrTokenExpired)

		middleware := NewAuthMiddleware(verifier, new(MockIdentityResolver), zap.NewNop())
		handler := middleware.Authenticator(http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer stale")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token_expired", errorCode(t, rec))
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("unknown signing key is reported as a generic invalid token", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		verifier.On("Verify", mock.Anything, "odd-kid").Return(nil, domain.ErrSigningKeyNotFound)

		middleware := NewAuthMiddleware(verifier, new(MockIdentityResolver), zap.NewNop())
		handler := middleware.Authenticator(http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer odd-kid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token_invalid", errorCode(t, rec))
	})

	t.Run("provider outage maps to bad gateway", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		verifier.On("Verify", mock.Anything, "any").Return(nil, domain.ErrJWKSFetch)

		middleware := NewAuthMiddleware(verifier, new(MockIdentityResolver), zap.NewNop())
		handler := middleware.Authenticator(http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer any")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "identity_provider_unavailable", errorCode(t, rec))
	})

	t.Run("misconfiguration maps to internal server error", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		verifier.On("Verify", mock.Anything, "any").Return(nil, domain.ErrProviderNotConfigured)

		middleware := NewAuthMiddleware(verifier, new(MockIdentityResolver), zap.NewNop())
		handler := middleware.Authenticator(http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer any")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "server_misconfigured", errorCode(t, rec))
	})

	t.Run("unresolvable identity maps to bad request", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		identity := new(MockIdentityResolver)
		verifier.On("Verify", mock.Anything, "thin").Return(testClaims(), nil)
		identity.On("ResolveUser", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.ErrMissingRequiredClaim)

		middleware := NewAuthMiddleware(verifier, identity, zap.NewNop())
		handler := middleware.Authenticator(http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer thin")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "missing_required_claim", errorCode(t, rec))
	})

	t.Run("userinfo header is parsed and handed to the resolver", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		identity := new(MockIdentityResolver)
		verifier.On("Verify", mock.Anything, "good-token").Return(testClaims(), nil)
		identity.On("ResolveUser", mock.Anything, mock.Anything, mock.MatchedBy(func(e *domain.ClaimEnrichment) bool {
			return e != nil && e.Userinfo["email"] == "userinfo@example.com"
		})).Return(testUser(domain.RoleBasicUser), nil)

		var gotUser *domain.User
		middleware := NewAuthMiddleware(verifier, identity, zap.NewNop())
		handler := middleware.Authenticator(okHandler(t, &gotUser))

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		req.Header.Set("X-Userinfo", `{"email":"userinfo@example.com"}`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		identity.AssertExpectations(t)
	})

	t.Run("malformed enrichment headers are ignored, not fatal", func(t *testing.T) {
		verifier := new(MockTokenVerifier)
		identity := new(MockIdentityResolver)
		verifier.On("Verify", mock.Anything, "good-token").Return(testClaims(), nil)
		identity.On("ResolveUser", mock.Anything, mock.Anything, (*domain.ClaimEnrichment)(nil)).
			Return(testUser(domain.RoleBasicUser), nil)

		var gotUser *domain.User
		middleware := NewAuthMiddleware(verifier, identity, zap.NewNop())
		handler := middleware.Authenticator(okHandler(t, &gotUser))

		req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		req.Header.Set("X-Userinfo", "{not json")
		req.Header.Set("X-Id-Token", "not.a.jwt-at-all")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		identity.AssertExpectations(t)
	})
}

func TestRequireRoles(t *testing.T) {
	middleware := NewAuthMiddleware(new(MockTokenVerifier), new(MockIdentityResolver), zap.NewNop())

	serve := func(t *testing.T, user *domain.User, required ...string) *httptest.ResponseRecorder {
		t.Helper()
		handler := middleware.RequireRoles(required...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		if user != nil {
			req = req.WithContext(context.WithValue(req.Context(), userContextKey, user))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("matching role passes", func(t *testing.T) {
		rec := serve(t, testUser(domain.RoleAdmin), domain.RoleAdmin)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("any of several required roles passes", func(t *testing.T) {
		rec := serve(t, testUser(domain.RoleEditor), domain.RoleEditor, domain.RoleAdmin)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("insufficient role is forbidden", func(t *testing.T) {
		rec := serve(t, testUser(domain.RoleBasicUser), domain.RoleAdmin)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "insufficient_role", errorCode(t, rec))
	})

	t.Run("no user in context is unauthorized", func(t *testing.T) {
		rec := serve(t, nil, domain.RoleAdmin)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty required set admits any authenticated user", func(t *testing.T) {
		rec := serve(t, testUser())
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
