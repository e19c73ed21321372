package service

import (
	"context"
	"fmt"
	"time"

	"github.com/carenest/carenest/internal/domain"
)

// NotificationReadStore is the full repository contract for notification
// retrieval and read-state mutation.
type NotificationReadStore interface {
	NotificationStore
	List(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, id, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, id, userID int64, isAdmin bool) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// UserLister enumerates recipients for system-wide announcements.
type UserLister interface {
	MemberIDs(ctx context.Context, familyID int64) ([]int64, error)
}

// NotificationService exposes the notification inbox and the admin
// announcement path.
type NotificationService struct {
	store      NotificationReadStore
	dispatcher *NotificationDispatcher
	families   UserLister
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(store NotificationReadStore, dispatcher *NotificationDispatcher, families UserLister) *NotificationService {
	return &NotificationService{store: store, dispatcher: dispatcher, families: families}
}

// List returns the user's notifications.
func (s *NotificationService) List(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]domain.Notification, error) {
	return s.store.List(ctx, userID, filter)
}

// CountUnread returns the user's unread badge count.
func (s *NotificationService) CountUnread(ctx context.Context, userID int64) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkAsRead marks one of the user's notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID int64) error {
	return s.store.MarkAsRead(ctx, id, userID)
}

// MarkAllAsRead marks all of the user's notifications as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.store.MarkAllAsRead(ctx, userID)
}

// Delete removes a notification, subject to ownership unless the caller is
// an administrator.
func (s *NotificationService) Delete(ctx context.Context, id, userID int64, role domain.Role) error {
	return s.store.Delete(ctx, id, userID, role == domain.RoleAdmin)
}

// Announce dispatches a system announcement to every member of the family.
// The announcement has no originating conversation, so every recipient gets
// a persisted record plus a best-effort live push.
func (s *NotificationService) Announce(ctx context.Context, familyID int64, content domain.NotificationContent) ([]domain.DispatchResult, error) {
	if !content.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown notification type %q", domain.ErrInvalidInput, content.Type)
	}

	recipients, err := s.families.MemberIDs(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("resolve announcement recipients: %w", err)
	}

	return s.dispatcher.Dispatch(ctx, "", recipients, content), nil
}

// PruneExpired removes notifications past their expiry.
func (s *NotificationService) PruneExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, time.Now())
}
