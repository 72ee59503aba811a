package handlers

import (
	"encoding/json"
	"net/http"

	httperrors "github.com/ipede/okta-identity-service/internal/interfaces/http/errors"
	"github.com/ipede/okta-identity-service/internal/interfaces/http/middleware/auth"
	"go.uber.org/zap"
)

type HandlerItem struct {
	logger *zap.Logger
}

func NewItemHandler(logger *zap.Logger) *HandlerItem {
	return &HandlerItem{logger: logger}
}

// CreateItemHandler accepts an item payload from an editor or admin and
// echoes it back with the acting user's identity. Role enforcement happens
// in the route middleware.
func (h *HandlerItem) CreateItemHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httperrors.RespondWithError(w, httperrors.CodeTokenMissing,
			"authentication required", http.StatusUnauthorized)
		return
	}

	var item map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		httperrors.RespondWithError(w, httperrors.CodeInvalidRequest,
			"invalid request body", http.StatusBadRequest)
		return
	}

	h.logger.Info("item created",
		zap.String("user_email", user.Email),
		zap.Strings("user_roles", user.RoleNames()))

	respondJSON(w, h.logger, map[string]interface{}{
		"message":    "Item created successfully",
		"item":       item,
		"user_email": user.Email,
		"user_roles": user.RoleNames(),
	})
}
