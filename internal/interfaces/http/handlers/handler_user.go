package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ipede/okta-identity-service/internal/application"
	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/ipede/okta-identity-service/internal/interfaces/http/dto"
	httperrors "github.com/ipede/okta-identity-service/internal/interfaces/http/errors"
	"github.com/ipede/okta-identity-service/internal/interfaces/http/middleware/auth"
	"go.uber.org/zap"
)

type HandlerUser struct {
	roleService *application.RoleService
	logger      *zap.Logger
}

func NewUserHandler(roleService *application.RoleService, logger *zap.Logger) *HandlerUser {
	return &HandlerUser{
		roleService: roleService,
		logger:      logger,
	}
}

// MeHandler returns the authenticated user's provisioned record with roles
func (h *HandlerUser) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httperrors.RespondWithError(w, httperrors.CodeTokenMissing,
			"authentication required", http.StatusUnauthorized)
		return
	}
	respondJSON(w, h.logger, dto.NewUserResponse(user))
}

// ListUsersHandler returns all users. Admin only.
func (h *HandlerUser) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	users, err := h.roleService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		httperrors.RespondWithError(w, httperrors.CodeInternal,
			"failed to list users", http.StatusInternalServerError)
		return
	}

	response := make([]*dto.UserResponse, len(users))
	for i, user := range users {
		response[i] = dto.NewUserResponse(user)
	}
	respondJSON(w, h.logger, response)
}

// SetRoleHandler replaces the target user's role set with a single role.
// Admin only.
func (h *HandlerUser) SetRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httperrors.RespondWithError(w, httperrors.CodeInvalidRequest,
			"invalid user ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		httperrors.RespondWithError(w, httperrors.CodeInvalidRequest,
			"invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.roleService.SetRole(r.Context(), userID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRole):
			httperrors.RespondWithError(w, httperrors.CodeInvalidRole,
				"unsupported role name", http.StatusBadRequest)
		case errors.Is(err, domain.ErrUserNotFound):
			httperrors.RespondWithError(w, httperrors.CodeNotFound,
				"user not found", http.StatusNotFound)
		default:
			h.logger.Error("failed to set role", zap.Int64("user_id", userID), zap.Error(err))
			httperrors.RespondWithError(w, httperrors.CodeInternal,
				"failed to set role", http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, h.logger, dto.NewUserResponse(user))
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return defaultValue
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
