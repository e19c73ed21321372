package domain

import "time"

// ForumPost represents a post on a family's forum board.
type ForumPost struct {
	ID        int64     `json:"id" db:"id"`
	FamilyID  int64     `json:"family_id" db:"family_id"`
	AuthorID  int64     `json:"author_id" db:"author_id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Votes     int       `json:"votes" db:"votes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ForumVote records one user's vote on a post. A user votes at most once
// per post.
type ForumVote struct {
	PostID    int64     `json:"post_id" db:"post_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Value     int       `json:"value" db:"value"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
