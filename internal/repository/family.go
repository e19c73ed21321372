package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/carenest/carenest/internal/domain"
)

// FamilyRepository handles families, memberships, and care updates.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository creates a new FamilyRepository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// Create creates a family owned by the given user and adds them as the
// first member.
func (r *FamilyRepository) Create(ctx context.Context, name string, description *string, ownerID int64) (*domain.Family, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapErr("create family", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var family domain.Family
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO families (name, description, owner_id) VALUES ($1, $2, $3)
		 RETURNING id, name, description, owner_id, created_at, updated_at`,
		name, description, ownerID).StructScan(&family)
	if err != nil {
		return nil, wrapErr("create family", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO family_members (family_id, user_id) VALUES ($1, $2)`,
		family.ID, ownerID); err != nil {
		return nil, wrapErr("add family owner", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapErr("create family", err)
	}
	return &family, nil
}

// FindByID retrieves a family.
func (r *FamilyRepository) FindByID(ctx context.Context, id int64) (*domain.Family, error) {
	var family domain.Family
	err := r.db.GetContext(ctx, &family,
		`SELECT id, name, description, owner_id, created_at, updated_at
		 FROM families WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("find family", err)
	}
	return &family, nil
}

// AddMember adds a user to the family. Adding an existing member is a no-op.
func (r *FamilyRepository) AddMember(ctx context.Context, familyID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO family_members (family_id, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, familyID, userID)
	if err != nil {
		return wrapErr("add family member", err)
	}
	return nil
}

// MemberIDs returns the user ids of every member of the family.
func (r *FamilyRepository) MemberIDs(ctx context.Context, familyID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM family_members WHERE family_id = $1`, familyID)
	if err != nil {
		return nil, wrapErr("list family members", err)
	}
	return ids, nil
}

// IsMember reports whether the user belongs to the family.
func (r *FamilyRepository) IsMember(ctx context.Context, familyID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (
		   SELECT 1 FROM family_members WHERE family_id = $1 AND user_id = $2
		 )`, familyID, userID)
	if err != nil {
		return false, wrapErr("check family member", err)
	}
	return exists, nil
}

// CreateCareUpdate records a care update for the family.
func (r *FamilyRepository) CreateCareUpdate(ctx context.Context, update domain.CareUpdate) (*domain.CareUpdate, error) {
	var result domain.CareUpdate
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO care_updates (family_id, author_id, severity, title, body)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, family_id, author_id, severity, title, body, created_at`,
		update.FamilyID, update.AuthorID, update.Severity, update.Title, update.Body).StructScan(&result)
	if err != nil {
		return nil, wrapErr("create care update", err)
	}
	return &result, nil
}

// ListCareUpdates returns the family's care updates, newest first.
func (r *FamilyRepository) ListCareUpdates(ctx context.Context, familyID int64, limit int) ([]domain.CareUpdate, error) {
	if limit <= 0 {
		limit = 50
	}
	updates := []domain.CareUpdate{}
	err := r.db.SelectContext(ctx, &updates,
		`SELECT id, family_id, author_id, severity, title, body, created_at
		 FROM care_updates WHERE family_id = $1
		 ORDER BY created_at DESC LIMIT $2`, familyID, limit)
	if err != nil {
		return nil, wrapErr("list care updates", err)
	}
	return updates, nil
}
