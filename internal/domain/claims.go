package domain

import (
	"strings"
	"time"
)

// VerifiedClaims is the decoded, signature-validated token payload. It is
// produced only by a TokenVerifier; nothing downstream re-parses the raw
// token or trusts claims outside this set.
type VerifiedClaims struct {
	Subject    string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	Issuer     string
	Audience   []string
	ExpiresAt  time.Time

	// Private carries the remaining non-registered claims verbatim so
	// callers receive the full verified claim set.
	Private map[string]interface{}
}

// ClaimEnrichment carries optional, unverified claim sources supplied by the
// transport layer. They improve name/email resolution quality only and are
// never used for authorization decisions.
type ClaimEnrichment struct {
	// Userinfo holds claims from a userinfo side-channel, if supplied
	Userinfo map[string]interface{}

	// IDTokenClaims holds claims parsed (without verification) from a
	// secondary identity token, if supplied
	IDTokenClaims map[string]interface{}
}

// ResolveProfile determines the email and display name for the subject.
// Resolution order, first non-empty wins: userinfo side-channel, secondary
// identity token, the verified access token, then a name constructed from
// given_name + family_name fragments in the same order. Different token
// types populate different claim subsets, hence the fallback chain.
func (c *VerifiedClaims) ResolveProfile(e *ClaimEnrichment) (email, name string) {
	sources := claimSources(c, e)

	for _, src := range sources {
		if email == "" {
			email = src.email()
		}
		if name == "" {
			name = src.name()
		}
	}
	if name == "" {
		for _, src := range sources {
			given, family := src.nameFragments()
			if full := strings.TrimSpace(strings.TrimSpace(given) + " " + strings.TrimSpace(family)); full != "" {
				name = full
				break
			}
		}
	}
	return email, name
}

type claimSource interface {
	email() string
	name() string
	nameFragments() (given, family string)
}

func claimSources(c *VerifiedClaims, e *ClaimEnrichment) []claimSource {
	sources := make([]claimSource, 0, 3)
	if e != nil && e.Userinfo != nil {
		sources = append(sources, mapClaims(e.Userinfo))
	}
	if e != nil && e.IDTokenClaims != nil {
		sources = append(sources, mapClaims(e.IDTokenClaims))
	}
	sources = append(sources, verifiedSource{c})
	return sources
}

// mapClaims reads profile fields from an untyped claim map
type mapClaims map[string]interface{}

func (m mapClaims) email() string { return m.str("email") }
func (m mapClaims) name() string  { return m.str("name") }
func (m mapClaims) nameFragments() (string, string) {
	return m.str("given_name"), m.str("family_name")
}

func (m mapClaims) str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

type verifiedSource struct {
	c *VerifiedClaims
}

func (s verifiedSource) email() string { return s.c.Email }
func (s verifiedSource) name() string  { return s.c.Name }
func (s verifiedSource) nameFragments() (string, string) {
	return s.c.GivenName, s.c.FamilyName
}
