package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/carenest/carenest/internal/domain"
)

// ForumRepository handles forum posts and votes.
type ForumRepository struct {
	db *sqlx.DB
}

// NewForumRepository creates a new ForumRepository.
func NewForumRepository(db *sqlx.DB) *ForumRepository {
	return &ForumRepository{db: db}
}

// CreatePost adds a post to the family forum.
func (r *ForumRepository) CreatePost(ctx context.Context, familyID, authorID int64, title, body string) (*domain.ForumPost, error) {
	var post domain.ForumPost
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO forum_posts (family_id, author_id, title, body)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, family_id, author_id, title, body, votes, created_at, updated_at`,
		familyID, authorID, title, body).StructScan(&post)
	if err != nil {
		return nil, wrapErr("create forum post", err)
	}
	return &post, nil
}

// FindPost retrieves a post.
func (r *ForumRepository) FindPost(ctx context.Context, id int64) (*domain.ForumPost, error) {
	var post domain.ForumPost
	err := r.db.GetContext(ctx, &post,
		`SELECT id, family_id, author_id, title, body, votes, created_at, updated_at
		 FROM forum_posts WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("find forum post", err)
	}
	return &post, nil
}

// ListPosts returns the family's posts, newest first.
func (r *ForumRepository) ListPosts(ctx context.Context, familyID int64, limit, offset int) ([]domain.ForumPost, error) {
	if limit <= 0 {
		limit = 50
	}
	posts := []domain.ForumPost{}
	err := r.db.SelectContext(ctx, &posts,
		`SELECT id, family_id, author_id, title, body, votes, created_at, updated_at
		 FROM forum_posts WHERE family_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, familyID, limit, offset)
	if err != nil {
		return nil, wrapErr("list forum posts", err)
	}
	return posts, nil
}

// Vote records the user's vote on a post and returns the post's new total.
// A repeat vote by the same user replaces their previous value.
func (r *ForumRepository) Vote(ctx context.Context, postID, userID int64, value int) (*domain.ForumPost, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapErr("vote on forum post", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO forum_votes (post_id, user_id, value) VALUES ($1, $2, $3)
		 ON CONFLICT (post_id, user_id) DO UPDATE SET value = EXCLUDED.value`,
		postID, userID, value)
	if err != nil {
		return nil, wrapErr("vote on forum post", err)
	}

	var post domain.ForumPost
	err = tx.QueryRowxContext(ctx,
		`UPDATE forum_posts
		 SET votes = (SELECT COALESCE(SUM(value), 0) FROM forum_votes WHERE post_id = $1),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING id, family_id, author_id, title, body, votes, created_at, updated_at`,
		postID).StructScan(&post)
	if err != nil {
		return nil, wrapErr("vote on forum post", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapErr("vote on forum post", err)
	}
	return &post, nil
}
