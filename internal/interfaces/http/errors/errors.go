package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents the standard error response structure. Message
// texts are generic by design: internal causes are logged server-side and
// never cross the trust boundary.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Machine-readable reason codes
const (
	CodeTokenMissing         = "token_missing"
	CodeTokenExpired         = "token_expired"
	CodeTokenInvalid         = "token_invalid"
	CodeMissingRequiredClaim = "missing_required_claim"
	CodeInvalidRole          = "invalid_role"
	CodeInsufficientRole     = "insufficient_role"
	CodeProviderUnavailable  = "identity_provider_unavailable"
	CodeServerMisconfigured  = "server_misconfigured"
	CodeInvalidRequest       = "invalid_request"
	CodeNotFound             = "not_found"
	CodeInternal             = "internal_error"
)

// RespondWithError sends a standardized error response
func RespondWithError(w http.ResponseWriter, code string, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	})
}
