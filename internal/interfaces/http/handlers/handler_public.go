package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

type HandlerPublic struct {
	logger *zap.Logger
}

func NewPublicHandler(logger *zap.Logger) *HandlerPublic {
	return &HandlerPublic{logger: logger}
}

// PublicHandler requires no authentication
func (h *HandlerPublic) PublicHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, map[string]string{"message": "This is a public route"})
}

// ProtectedHandler requires a valid token; any authenticated user passes
func (h *HandlerPublic) ProtectedHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, map[string]string{"message": "This is a protected route, token is valid"})
}
