package repository

import (
	"context"
	"errors"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/ipede/okta-identity-service/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type RoleRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

func NewRoleRepository(db *database.Postgres, logger *zap.Logger) *RoleRepository {
	return &RoleRepository{db: db, logger: logger}
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	role := &domain.Role{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, '') FROM roles WHERE name = $1
	`, name).Scan(&role.ID, &role.Name, &role.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRoleNotFound
	}
	if err != nil {
		r.logger.Error("failed to find role", zap.String("name", name), zap.Error(err))
		return nil, domain.ErrInternal
	}
	return role, nil
}

func (r *RoleRepository) GetOrCreate(ctx context.Context, name, description string) (*domain.Role, error) {
	role := &domain.Role{}
	err := r.db.QueryRow(ctx, `
		INSERT INTO roles (name, description)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, COALESCE(description, '')
	`, name, description).Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		r.logger.Error("failed to get or create role", zap.String("name", name), zap.Error(err))
		return nil, domain.ErrInternal
	}
	return role, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(description, '') FROM roles ORDER BY name
	`)
	if err != nil {
		r.logger.Error("failed to list roles", zap.Error(err))
		return nil, domain.ErrInternal
	}
	defer rows.Close()

	var roles []*domain.Role
	for rows.Next() {
		role := &domain.Role{}
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, domain.ErrInternal
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrInternal
	}
	return roles, nil
}
