package domain

import "time"

// Family represents a care circle of users coordinating around one household.
type Family struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// FamilyMember links a user to a family.
type FamilyMember struct {
	FamilyID int64     `json:"family_id" db:"family_id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// CareUpdateSeverity grades a care update.
type CareUpdateSeverity string

const (
	SeverityInfo      CareUpdateSeverity = "info"
	SeverityImportant CareUpdateSeverity = "important"
	SeverityEmergency CareUpdateSeverity = "emergency"
)

// CareUpdate represents a status update about the cared-for person, shared
// with the whole family.
type CareUpdate struct {
	ID        int64              `json:"id" db:"id"`
	FamilyID  int64              `json:"family_id" db:"family_id"`
	AuthorID  int64              `json:"author_id" db:"author_id"`
	Severity  CareUpdateSeverity `json:"severity" db:"severity"`
	Title     string             `json:"title" db:"title"`
	Body      string             `json:"body" db:"body"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}
