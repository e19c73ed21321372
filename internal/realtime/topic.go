// Package realtime implements the live delivery plumbing: a connection
// registry tracking which users hold an open stream to which topic, and a
// broadcaster that fans event envelopes out to topic subscribers.
package realtime

import "fmt"

// UserTopic returns the personal channel topic for a user. Every user has
// exactly one personal topic, used for badge pushes regardless of what they
// are currently viewing.
func UserTopic(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// ConversationTopic returns the topic for a direct-message conversation.
func ConversationTopic(conversationID int64) string {
	return fmt.Sprintf("conversation:%d", conversationID)
}
