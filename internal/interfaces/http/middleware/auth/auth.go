package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/ipede/okta-identity-service/internal/application"
	"github.com/ipede/okta-identity-service/internal/domain"
	httperrors "github.com/ipede/okta-identity-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// Optional enrichment headers. Both are unsigned from this component's
// perspective and are used only to improve name/email resolution, never for
// authorization decisions.
const (
	headerIDToken  = "X-Id-Token"
	headerUserinfo = "X-Userinfo"
)

type contextKey struct{}

var userContextKey contextKey

// UserFromContext retrieves the authenticated user placed by Authenticator
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	return user, ok
}

type AuthMiddleware struct {
	verifier domain.TokenVerifier
	identity domain.IdentityResolver
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier domain.TokenVerifier, identity domain.IdentityResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, identity: identity, logger: logger}
}

// Authenticator verifies the bearer token, resolves the local user
// (provisioning on first sight) and injects it into the request context.
// Authentication failures reject the request before any authorization or
// business logic runs, and always fail closed.
func (m *AuthMiddleware) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawToken := extractBearer(r)
		if rawToken == "" {
			httperrors.RespondWithError(w, httperrors.CodeTokenMissing,
				"authorization header missing or not a bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := m.verifier.Verify(r.Context(), rawToken)
		if err != nil {
			m.respondVerifyError(w, err)
			return
		}

		user, err := m.identity.ResolveUser(r.Context(), claims, m.enrichmentFrom(r))
		if err != nil {
			m.respondResolveError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles allows the request through when the authenticated user's
// role set intersects the given names. An empty list admits any
// authenticated user.
func (m *AuthMiddleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				httperrors.RespondWithError(w, httperrors.CodeTokenMissing,
					"authentication required", http.StatusUnauthorized)
				return
			}
			if !application.Authorize(user, roles) {
				httperrors.RespondWithError(w, httperrors.CodeInsufficientRole,
					"insufficient role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) respondVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured):
		m.logger.Error("identity provider not configured", zap.Error(err))
		httperrors.RespondWithError(w, httperrors.CodeServerMisconfigured,
			"server configuration error", http.StatusInternalServerError)
	case errors.Is(err, domain.ErrJWKSFetch):
		httperrors.RespondWithError(w, httperrors.CodeProviderUnavailable,
			"identity provider unavailable", http.StatusBadGateway)
	case errors.Is(err, domain.ErrTokenExpired):
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="The token has expired"`)
		httperrors.RespondWithError(w, httperrors.CodeTokenExpired,
			"token has expired", http.StatusUnauthorized)
	default:
		// ErrSigningKeyNotFound is reported as a generic invalid token so
		// the response does not reveal which key ids exist. Unclassified
		// errors land here too: fail closed.
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		httperrors.RespondWithError(w, httperrors.CodeTokenInvalid,
			"invalid token", http.StatusUnauthorized)
	}
}

func (m *AuthMiddleware) respondResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrMissingRequiredClaim) {
		httperrors.RespondWithError(w, httperrors.CodeMissingRequiredClaim,
			"token does not carry enough identity information", http.StatusBadRequest)
		return
	}
	m.logger.Error("failed to resolve user from claims", zap.Error(err))
	httperrors.RespondWithError(w, httperrors.CodeInternal,
		"failed to resolve user", http.StatusInternalServerError)
}

// enrichmentFrom collects the optional unsigned claim sources from request
// headers. Malformed values are ignored rather than failing the request.
func (m *AuthMiddleware) enrichmentFrom(r *http.Request) *domain.ClaimEnrichment {
	enrichment := &domain.ClaimEnrichment{}

	if raw := r.Header.Get(headerUserinfo); raw != "" {
		var userinfo map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &userinfo); err != nil {
			m.logger.Debug("ignoring malformed userinfo header", zap.Error(err))
		} else {
			enrichment.Userinfo = userinfo
		}
	}

	if raw := r.Header.Get(headerIDToken); raw != "" {
		claims := gojwt.MapClaims{}
		if _, _, err := gojwt.NewParser().ParseUnverified(raw, claims); err != nil {
			m.logger.Debug("ignoring malformed identity token header", zap.Error(err))
		} else {
			enrichment.IDTokenClaims = claims
		}
	}

	if enrichment.Userinfo == nil && enrichment.IDTokenClaims == nil {
		return nil
	}
	return enrichment
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
