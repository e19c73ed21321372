package domain

import "time"

// Resource represents a shared care resource: a link or document useful to
// the family (care guides, provider contacts, schedules).
type Resource struct {
	ID          int64     `json:"id" db:"id"`
	FamilyID    int64     `json:"family_id" db:"family_id"`
	UploaderID  int64     `json:"uploader_id" db:"uploader_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	URL         string    `json:"url" db:"url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
