package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/carenest/carenest/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// NotificationRepository handles durable notification records.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification record for the recipient. The record starts
// unread.
func (r *NotificationRepository) Create(ctx context.Context, recipientID int64, content domain.NotificationContent) (*domain.Notification, error) {
	statement, args, err := psql.
		Insert("notifications").
		Columns("recipient_id", "type", "title", "message", "data", "is_actionable", "action_url", "expires_at").
		Values(recipientID, content.Type, content.Title, content.Message,
			[]byte(content.Data), content.IsActionable, content.ActionURL, content.ExpiresAt).
		Suffix("RETURNING id, recipient_id, type, title, message, data, is_actionable, action_url, is_read, created_at, expires_at").
		ToSql()
	if err != nil {
		return nil, wrapErr("create notification", err)
	}

	var n domain.Notification
	if err := r.db.GetContext(ctx, &n, statement, args...); err != nil {
		return nil, wrapErr("create notification", err)
	}
	return &n, nil
}

// List returns the recipient's notifications, newest first, narrowed by the
// filter. Expired records are excluded.
func (r *NotificationRepository) List(ctx context.Context, userID int64, filter domain.NotificationFilter) ([]domain.Notification, error) {
	builder := psql.
		Select("id", "recipient_id", "type", "title", "message", "data",
			"is_actionable", "action_url", "is_read", "created_at", "expires_at").
		From("notifications").
		Where(sq.Eq{"recipient_id": userID}).
		Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": time.Now()}}).
		OrderBy("created_at DESC")

	if filter.UnreadOnly {
		builder = builder.Where(sq.Eq{"is_read": false})
	}
	if filter.Type != nil {
		builder = builder.Where(sq.Eq{"type": *filter.Type})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	statement, args, err := builder.ToSql()
	if err != nil {
		return nil, wrapErr("list notifications", err)
	}

	notifications := []domain.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, statement, args...); err != nil {
		return nil, wrapErr("list notifications", err)
	}
	return notifications, nil
}

// CountUnread counts the recipient's unread, unexpired notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	statement, args, err := psql.
		Select("count(*)").
		From("notifications").
		Where(sq.Eq{"recipient_id": userID}).
		Where(sq.Eq{"is_read": false}).
		Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": time.Now()}}).
		ToSql()
	if err != nil {
		return 0, wrapErr("count unread notifications", err)
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, statement, args...); err != nil {
		return 0, wrapErr("count unread notifications", err)
	}
	return total, nil
}

// MarkAsRead marks one of the recipient's notifications as read. Marking a
// record the user does not own reports not found.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`, id, userID)
	if err != nil {
		return wrapErr("mark notification as read", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("mark notification as read", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkAllAsRead marks every one of the recipient's notifications as read.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return wrapErr("mark all notifications as read", err)
	}
	return nil
}

// Delete removes a notification. Owners delete their own records;
// administrators may delete any record.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID int64, isAdmin bool) error {
	builder := psql.Delete("notifications").Where(sq.Eq{"id": id})
	if !isAdmin {
		builder = builder.Where(sq.Eq{"recipient_id": userID})
	}
	statement, args, err := builder.ToSql()
	if err != nil {
		return wrapErr("delete notification", err)
	}

	res, err := r.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return wrapErr("delete notification", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapErr("delete notification", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteExpired removes records past their expiry. Run periodically by the
// janitor.
func (r *NotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, wrapErr("delete expired notifications", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr("delete expired notifications", err)
	}
	return affected, nil
}
