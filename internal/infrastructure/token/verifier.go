package token

import (
	"context"
	"errors"
	"time"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/ipede/okta-identity-service/internal/infrastructure/config"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
)

// KeySource provides the provider's current signing keys. Implemented by
// the JWKS cache.
type KeySource interface {
	SigningKeys(ctx context.Context) (jwk.Set, error)
	Refresh(ctx context.Context) (jwk.Set, error)
}

// Verifier validates bearer tokens against the Okta key set. Only the
// provider's asymmetric signature scheme (RS256) is accepted; unsigned and
// symmetric-algorithm tokens are rejected outright.
type Verifier struct {
	issuer              string
	clientID            string
	allowIssuerAudience bool
	keys                KeySource
	logger              *zap.Logger

	// now is replaceable in tests
	now func() time.Time
}

// NewVerifier creates a token verifier backed by the given key source
func NewVerifier(cfg *config.Config, keys KeySource, logger *zap.Logger) *Verifier {
	return &Verifier{
		issuer:              cfg.OktaIssuer,
		clientID:            cfg.OktaClientID,
		allowIssuerAudience: cfg.AllowIssuerAudience,
		keys:                keys,
		logger:              logger,
		now:                 time.Now,
	}
}

// Verify validates the raw token's signature, expiry, issuer and audience
// and returns the full verified claim set. Any failure resolves to one of
// the domain sentinels; nothing unclassified ever verifies successfully.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*domain.VerifiedClaims, error) {
	if v.issuer == "" || v.clientID == "" {
		return nil, domain.ErrProviderNotConfigured
	}

	key, err := v.lookupKey(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	// Signature verification only; claims are validated separately so the
	// failure modes stay distinguishable.
	tok, err := jwt.Parse([]byte(rawToken),
		jwt.WithKey(jwa.RS256, key),
		jwt.WithValidate(false),
	)
	if err != nil {
		v.logger.Warn("token signature verification failed", zap.Error(err))
		return nil, domain.ErrTokenMalformed
	}

	if err := jwt.Validate(tok, jwt.WithClock(jwt.ClockFunc(v.now))); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, domain.ErrTokenExpired
		}
		v.logger.Warn("token time claims invalid", zap.Error(err))
		return nil, domain.ErrClaimsInvalid
	}

	if tok.Issuer() != v.issuer {
		v.logger.Warn("token issuer mismatch", zap.String("issuer", tok.Issuer()))
		return nil, domain.ErrClaimsInvalid
	}

	if err := v.checkAudience(tok.Audience()); err != nil {
		return nil, err
	}

	return claimsFromToken(tok), nil
}

// lookupKey decodes the unverified token header, resolves the signing key
// by kid, and retries once after a cache refresh in case the cached key set
// itself is stale. It never retries beyond that.
func (v *Verifier) lookupKey(ctx context.Context, rawToken string) (jwk.Key, error) {
	msg, err := jws.Parse([]byte(rawToken))
	if err != nil {
		return nil, domain.ErrTokenMalformed
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return nil, domain.ErrTokenMalformed
	}

	headers := sigs[0].ProtectedHeaders()
	if headers.Algorithm() != jwa.RS256 {
		v.logger.Warn("token signed with disallowed algorithm",
			zap.String("alg", headers.Algorithm().String()))
		return nil, domain.ErrTokenMalformed
	}

	kid := headers.KeyID()
	if kid == "" {
		return nil, domain.ErrSigningKeyNotFound
	}

	keys, err := v.keys.SigningKeys(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := keys.LookupKeyID(kid); ok {
		return key, nil
	}

	keys, err = v.keys.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := keys.LookupKeyID(kid); ok {
		return key, nil
	}

	v.logger.Warn("no signing key for token kid after refresh")
	return nil, domain.ErrSigningKeyNotFound
}

// checkAudience accepts the configured client ID as audience. Some Okta
// flows emit the issuer itself as audience; that is accepted only as an
// explicit fallback, gated by configuration and logged as degraded trust.
func (v *Verifier) checkAudience(audience []string) error {
	for _, aud := range audience {
		if aud == v.clientID {
			return nil
		}
	}
	if v.allowIssuerAudience {
		for _, aud := range audience {
			if aud == v.issuer {
				v.logger.Warn("accepted token with issuer as audience (degraded trust path)",
					zap.String("issuer", v.issuer))
				return nil
			}
		}
	}
	v.logger.Warn("token audience mismatch", zap.Strings("audience", audience))
	return domain.ErrClaimsInvalid
}

func claimsFromToken(tok jwt.Token) *domain.VerifiedClaims {
	claims := &domain.VerifiedClaims{
		Subject:   tok.Subject(),
		Issuer:    tok.Issuer(),
		Audience:  tok.Audience(),
		ExpiresAt: tok.Expiration(),
		Private:   tok.PrivateClaims(),
	}
	if v, ok := claims.Private["email"].(string); ok {
		claims.Email = v
	}
	if v, ok := claims.Private["name"].(string); ok {
		claims.Name = v
	}
	if v, ok := claims.Private["given_name"].(string); ok {
		claims.GivenName = v
	}
	if v, ok := claims.Private["family_name"].(string); ok {
		claims.FamilyName = v
	}
	return claims
}
