package repository

import (
	"context"
	"errors"

	"github.com/ipede/okta-identity-service/internal/domain"
	"github.com/ipede/okta-identity-service/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const userColumns = `id, okta_user_id, email, COALESCE(full_name, ''), is_active, created_at, updated_at`

type UserRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

func NewUserRepository(db *database.Postgres, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByOktaID(ctx context.Context, oktaID string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE okta_user_id = $1`, oktaID)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.OktaUserID, &user.Email, &user.FullName,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		r.logger.Error("failed to find user", zap.Error(err))
		return nil, domain.ErrInternal
	}

	if user.Roles, err = r.rolesForUser(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateWithRole inserts the user and assigns the named role inside one
// transaction: a user is never observably persisted without a role. A
// unique violation on okta_user_id means a concurrent writer created the
// same subject first and is reported as ErrUserAlreadyExists.
func (r *UserRepository) CreateWithRole(ctx context.Context, user *domain.User, roleName string) (*domain.User, error) {
	created := *user
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (okta_user_id, email, full_name)
			VALUES ($1, $2, NULLIF($3, ''))
			RETURNING id, is_active, created_at, updated_at
		`, user.OktaUserID, user.Email, user.FullName).Scan(
			&created.ID, &created.IsActive, &created.CreatedAt, &created.UpdatedAt,
		)
		if err != nil {
			return err
		}

		role, err := getOrCreateRole(ctx, tx, roleName, domain.RoleDescription(roleName))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		`, created.ID, role.ID); err != nil {
			return err
		}

		created.Roles = []domain.Role{*role}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		r.logger.Error("failed to create user", zap.String("okta_user_id", user.OktaUserID), zap.Error(err))
		return nil, domain.ErrInternal
	}
	return &created, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	err := r.db.Exec(ctx, `
		UPDATE users
		SET email = $1, full_name = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3
	`, user.Email, user.FullName, user.ID)
	if err != nil {
		return domain.ErrInternal
	}
	return nil
}

// ReplaceRoles swaps the user's whole role set for the single named role
func (r *UserRepository) ReplaceRoles(ctx context.Context, userID int64, roleName string) error {
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		role, err := getOrCreateRole(ctx, tx, roleName, domain.RoleDescription(roleName))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, role.ID)
		return err
	})
	if err != nil {
		r.logger.Error("failed to replace roles", zap.Int64("user_id", userID), zap.Error(err))
		return domain.ErrInternal
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		r.logger.Error("failed to list users", zap.Error(err))
		return nil, domain.ErrInternal
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(&user.ID, &user.OktaUserID, &user.Email, &user.FullName,
			&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			r.logger.Error("failed to scan user", zap.Error(err))
			return nil, domain.ErrInternal
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrInternal
	}

	for _, user := range users {
		if user.Roles, err = r.rolesForUser(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *UserRepository) rolesForUser(ctx context.Context, userID int64) ([]domain.Role, error) {
	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.name, COALESCE(r.description, '')
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		r.logger.Error("failed to load user roles", zap.Int64("user_id", userID), zap.Error(err))
		return nil, domain.ErrInternal
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
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

// getOrCreateRole resolves a role by name inside the given transaction,
// creating it when absent. ON CONFLICT keeps it race-safe against a
// concurrent creator of the same role.
func getOrCreateRole(ctx context.Context, tx pgx.Tx, name, description string) (*domain.Role, error) {
	role := &domain.Role{}
	err := tx.QueryRow(ctx, `
		INSERT INTO roles (name, description)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, COALESCE(description, '')
	`, name, description).Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		return nil, err
	}
	return role, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
