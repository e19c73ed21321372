package domain

import (
	"encoding/json"
	"time"
)

// NotificationType represents the kind of notification.
type NotificationType string

const (
	NotificationMessage            NotificationType = "message"
	NotificationCareUpdate         NotificationType = "care_update"
	NotificationEmergencyAlert     NotificationType = "emergency_alert"
	NotificationSystemAnnouncement NotificationType = "system_announcement"
	NotificationFamilyActivity     NotificationType = "family_activity"
)

// Valid reports whether the notification type is one of the known kinds.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationMessage, NotificationCareUpdate, NotificationEmergencyAlert,
		NotificationSystemAnnouncement, NotificationFamilyActivity:
		return true
	}
	return false
}

// Notification represents an in-app notification for a user. Records are
// immutable after creation except for the read flag and deletion.
type Notification struct {
	ID           int64            `json:"id" db:"id"`
	RecipientID  int64            `json:"recipient_id" db:"recipient_id"`
	Type         NotificationType `json:"type" db:"type"`
	Title        string           `json:"title" db:"title"`
	Message      string           `json:"message" db:"message"`
	Data         json.RawMessage  `json:"data,omitempty" db:"data"`
	IsActionable bool             `json:"is_actionable" db:"is_actionable"`
	ActionURL    *string          `json:"action_url,omitempty" db:"action_url"`
	IsRead       bool             `json:"is_read" db:"is_read"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
}

// NotificationContent is the caller-supplied body of a notification to be
// dispatched or created directly.
type NotificationContent struct {
	Type         NotificationType
	Title        string
	Message      string
	Data         json.RawMessage
	IsActionable bool
	ActionURL    *string
	ExpiresAt    *time.Time
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	UnreadOnly bool
	Type       *NotificationType
	Limit      int
	Offset     int
}

// DispatchResult is the per-recipient outcome of a dispatch call. A batch
// never fails as a whole; each recipient carries its own result.
type DispatchResult struct {
	RecipientID    int64  `json:"recipient_id"`
	Success        bool   `json:"success"`
	SSEDelivered   bool   `json:"sse_delivered"`
	Persisted      bool   `json:"persisted"`
	NotificationID *int64 `json:"notification_id,omitempty"`
	Err            error  `json:"-"`
}
