package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/ipede/okta-identity-service/internal/infrastructure/config"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.uber.org/zap"
)

// discoveryDocument is the subset of the OIDC discovery document we need
type discoveryDocument struct {
	JWKSURI string `json:"jwks_uri"`
}

type cacheEntry struct {
	keys      jwk.Set
	fetchedAt time.Time
}

// Cache fetches and caches the identity provider's signing keys via OIDC
// discovery. The cached entry is valid for the configured TTL and is
// replaced wholesale on refresh; concurrent refreshes are tolerated and the
// last writer wins.
type Cache struct {
	issuer string
	ttl    time.Duration
	client *http.Client
	logger *zap.Logger

	// now is replaceable in tests
	now func() time.Time

	entry atomic.Pointer[cacheEntry]
}

// NewCache creates a JWKS cache for the configured issuer. Outbound fetches
// carry the configured bounded timeout.
func NewCache(cfg *config.Config, logger *zap.Logger) *Cache {
	return &Cache{
		issuer: cfg.OktaIssuer,
		ttl:    cfg.JWKSCacheTTL,
		client: &http.Client{Timeout: cfg.OktaHTTPTimeout},
		logger: logger,
		now:    time.Now,
	}
}

// SigningKeys returns the provider's current key set, fetching it if the
// cached entry is absent or older than the TTL. A valid cached entry is
// returned without any network call.
func (c *Cache) SigningKeys(ctx context.Context) (jwk.Set, error) {
	if e := c.entry.Load(); e != nil && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.keys, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches the discovery document and key set unconditionally and
// atomically replaces the cached entry.
func (c *Cache) Refresh(ctx context.Context) (jwk.Set, error) {
	if c.issuer == "" {
		return nil, domain.ErrProviderNotConfigured
	}

	discoveryURL := c.issuer + "/.well-known/openid-configuration"
	body, err := c.get(ctx, discoveryURL)
	if err != nil {
		c.logger.Error("failed to fetch OIDC discovery document",
			zap.String("url", discoveryURL), zap.Error(err))
		return nil, domain.ErrJWKSFetch
	}

	var doc discoveryDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		c.logger.Error("failed to decode OIDC discovery document", zap.Error(err))
		return nil, domain.ErrJWKSFetch
	}
	if doc.JWKSURI == "" {
		c.logger.Error("jwks_uri missing from OIDC discovery document",
			zap.String("issuer", c.issuer))
		return nil, domain.ErrJWKSFetch
	}

	body, err = c.get(ctx, doc.JWKSURI)
	if err != nil {
		c.logger.Error("failed to fetch JWKS",
			zap.String("url", doc.JWKSURI), zap.Error(err))
		return nil, domain.ErrJWKSFetch
	}

	keys, err := jwk.Parse(body)
	if err != nil {
		c.logger.Error("failed to parse JWKS", zap.Error(err))
		return nil, domain.ErrJWKSFetch
	}

	c.entry.Store(&cacheEntry{keys: keys, fetchedAt: c.now()})
	c.logger.Info("fetched and cached new JWKS",
		zap.Int("keys", keys.Len()), zap.String("issuer", c.issuer))
	return keys, nil
}

func (c *Cache) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
