package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/carenest/carenest/internal/domain"
	"github.com/carenest/carenest/internal/realtime"
)

// Event types pushed on a recipient's personal channel.
const (
	// EventNotification is a transient push to a recipient who is actively
	// viewing the originating context. No record backs it.
	EventNotification = "notification"
	// EventNotificationCreated announces a newly persisted record so that
	// live clients can update their badge.
	EventNotificationCreated = "notification.created"
)

// NotificationStore is the persistence contract the dispatcher consumes.
type NotificationStore interface {
	Create(ctx context.Context, recipientID int64, content domain.NotificationContent) (*domain.Notification, error)
}

// Presence answers whether a user is live on a topic.
type Presence interface {
	IsConnected(topicID string, userID int64) bool
}

// Publisher pushes an event to a topic's live subscribers.
type Publisher interface {
	Broadcast(topicID string, event realtime.Event)
}

// NotificationDispatcher decides, per recipient, whether an event is pushed
// live or persisted for later retrieval.
type NotificationDispatcher struct {
	store     NotificationStore
	presence  Presence
	publisher Publisher
}

// NewNotificationDispatcher creates a dispatcher.
func NewNotificationDispatcher(store NotificationStore, presence Presence, publisher Publisher) *NotificationDispatcher {
	return &NotificationDispatcher{
		store:     store,
		presence:  presence,
		publisher: publisher,
	}
}

// Dispatch fans the notification out to every recipient and returns one
// result per recipient, in input order. Recipients are processed
// concurrently; one recipient's failure never aborts the others, and the
// batch itself never fails. The caller is responsible for excluding the
// acting user from the recipient list. Repeated events to the same recipient
// are not coalesced.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, originTopic string, recipientIDs []int64, content domain.NotificationContent) []domain.DispatchResult {
	results := make([]domain.DispatchResult, len(recipientIDs))

	var wg sync.WaitGroup
	for i, recipientID := range recipientIDs {
		wg.Add(1)
		go func(i int, recipientID int64) {
			defer wg.Done()
			results[i] = d.dispatchOne(ctx, originTopic, recipientID, content)
		}(i, recipientID)
	}
	wg.Wait()

	return results
}

// dispatchOne applies the delivery decision for a single recipient.
//
// A recipient live on the originating topic is viewing the relevant context
// already, so a durable badge would be redundant: the event goes straight to
// their personal channel and nothing is persisted. Everyone else gets a
// persisted record plus a best-effort push on their personal channel, which
// covers recipients who are live somewhere else and should still see a badge
// update. Presence is checked only against the originating topic, not the
// recipient's full set of live topics.
func (d *NotificationDispatcher) dispatchOne(ctx context.Context, originTopic string, recipientID int64, content domain.NotificationContent) domain.DispatchResult {
	personalTopic := realtime.UserTopic(recipientID)

	if originTopic != "" && d.presence.IsConnected(originTopic, recipientID) {
		d.publisher.Broadcast(personalTopic, realtime.NewEvent(EventNotification, transientPayload(content)))
		return domain.DispatchResult{
			RecipientID:  recipientID,
			Success:      true,
			SSEDelivered: true,
		}
	}

	notification, err := d.store.Create(ctx, recipientID, content)
	if err != nil {
		slog.Error("notification persistence failed",
			"recipient_id", recipientID, "type", content.Type, "error", err)
		return domain.DispatchResult{RecipientID: recipientID, Err: err}
	}

	result := domain.DispatchResult{
		RecipientID:    recipientID,
		Success:        true,
		Persisted:      true,
		NotificationID: &notification.ID,
	}

	// Fire-and-forget badge push; it only lands if the recipient holds a
	// personal stream somewhere.
	result.SSEDelivered = d.presence.IsConnected(personalTopic, recipientID)
	d.publisher.Broadcast(personalTopic, realtime.NewEvent(EventNotificationCreated, notification))

	return result
}

func transientPayload(content domain.NotificationContent) map[string]any {
	return map[string]any{
		"type":          content.Type,
		"title":         content.Title,
		"message":       content.Message,
		"data":          content.Data,
		"is_actionable": content.IsActionable,
		"action_url":    content.ActionURL,
	}
}
