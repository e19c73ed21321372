package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/carenest/carenest/internal/domain"
)

// ResourceRepository handles shared care resource data access.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new ResourceRepository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// Create records a shared resource.
func (r *ResourceRepository) Create(ctx context.Context, resource domain.Resource) (*domain.Resource, error) {
	var created domain.Resource
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO resources (family_id, uploader_id, title, description, url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, family_id, uploader_id, title, description, url, created_at`,
		resource.FamilyID, resource.UploaderID, resource.Title, resource.Description, resource.URL,
	).StructScan(&created)
	if err != nil {
		return nil, wrapErr("create resource", err)
	}
	return &created, nil
}

// ListForFamily returns the family's shared resources, newest first.
func (r *ResourceRepository) ListForFamily(ctx context.Context, familyID int64, limit int) ([]domain.Resource, error) {
	resources := []domain.Resource{}
	err := r.db.SelectContext(ctx, &resources,
		`SELECT id, family_id, uploader_id, title, description, url, created_at
		 FROM resources WHERE family_id = $1
		 ORDER BY created_at DESC LIMIT $2`, familyID, limit)
	if err != nil {
		return nil, wrapErr("list resources", err)
	}
	return resources, nil
}

// Delete removes a resource. Non-admins may only remove their own uploads.
func (r *ResourceRepository) Delete(ctx context.Context, id, userID int64, isAdmin bool) error {
	query := `DELETE FROM resources WHERE id = $1 AND uploader_id = $2`
	args := []any{id, userID}
	if isAdmin {
		query = `DELETE FROM resources WHERE id = $1`
		args = []any{id}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr("delete resource", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("delete resource", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
