package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/carenest/carenest/internal/domain"
)

// UserRepository handles user data access operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, provider, provider_id, email, display_name, role, avatar_url, created_at, updated_at
		 FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("find user by id", err)
	}
	return &user, nil
}

// FindByProviderID retrieves a user by their OAuth provider and provider ID.
func (r *UserRepository) FindByProviderID(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, provider, provider_id, email, display_name, role, avatar_url, created_at, updated_at
		 FROM users WHERE provider = $1 AND provider_id = $2`, provider, providerID)
	if err != nil {
		return nil, wrapErr("find user by provider", err)
	}
	return &user, nil
}

// Upsert creates a new user or updates an existing one based on provider +
// provider_id. New users start as members; an existing user's assigned role
// is never overwritten by a login.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (*domain.User, error) {
	role := user.Role
	if role == "" {
		role = domain.RoleMember
	}

	var result domain.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (provider, provider_id, email, display_name, role, avatar_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (provider, provider_id)
		 DO UPDATE SET email = EXCLUDED.email,
		               display_name = EXCLUDED.display_name,
		               avatar_url = EXCLUDED.avatar_url,
		               updated_at = NOW()
		 RETURNING id, provider, provider_id, email, display_name, role, avatar_url, created_at, updated_at`,
		user.Provider, user.ProviderID, user.Email, user.DisplayName, role, user.AvatarURL,
	).StructScan(&result)
	if err != nil {
		return nil, wrapErr("upsert user", err)
	}
	return &result, nil
}

// SetRole changes a user's role. Admin-only at the handler layer.
func (r *UserRepository) SetRole(ctx context.Context, id int64, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`, role, id)
	if err != nil {
		return wrapErr("set user role", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("set user role", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
