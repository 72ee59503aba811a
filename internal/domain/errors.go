package domain

import "errors"

var (
	// ErrProviderNotConfigured is returned when the Okta issuer or client ID is missing
	ErrProviderNotConfigured = errors.New("identity provider not configured")

	// ErrJWKSFetch is returned when the discovery document or key set cannot be retrieved
	ErrJWKSFetch = errors.New("failed to fetch signing keys from identity provider")

	// ErrSigningKeyNotFound is returned when the token kid matches no key in the key set
	ErrSigningKeyNotFound = errors.New("no signing key found for token")

	// ErrTokenExpired is returned when a signature-valid token has expired
	ErrTokenExpired = errors.New("token has expired")

	// ErrClaimsInvalid is returned when the token issuer or audience does not match
	ErrClaimsInvalid = errors.New("token claims invalid")

	// ErrTokenMalformed is returned when the token is structurally invalid or its signature cannot be verified
	ErrTokenMalformed = errors.New("invalid token format or signature")

	// ErrMissingRequiredClaim is returned when the subject or email cannot be determined from any claim source
	ErrMissingRequiredClaim = errors.New("subject or email missing from token")

	// ErrInvalidRole is returned when a requested role is outside the configured allow-list
	ErrInvalidRole = errors.New("invalid role")

	// ErrUserNotFound is returned when a user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned when a user with the same Okta subject already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrRoleNotFound is returned when a role does not exist
	ErrRoleNotFound = errors.New("role not found")

	// ErrInternal is returned when there is an internal server error
	ErrInternal = errors.New("internal server error")
)
