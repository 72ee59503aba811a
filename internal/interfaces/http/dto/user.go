package dto

import (
	"time"

	"github.com/ipede/okta-identity-service/internal/domain"
)

type RoleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type UserResponse struct {
	ID         int64          `json:"id"`
	OktaUserID string         `json:"okta_user_id"`
	Email      string         `json:"email"`
	FullName   string         `json:"full_name,omitempty"`
	IsActive   bool           `json:"is_active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Roles      []RoleResponse `json:"roles"`
}

func NewUserResponse(user *domain.User) *UserResponse {
	roles := make([]RoleResponse, len(user.Roles))
	for i, r := range user.Roles {
		roles[i] = RoleResponse{ID: r.ID, Name: r.Name, Description: r.Description}
	}
	return &UserResponse{
		ID:         user.ID,
		OktaUserID: user.OktaUserID,
		Email:      user.Email,
		FullName:   user.FullName,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
		Roles:      roles,
	}
}
