package repository

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/carenest/carenest/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unable to open the mock database connection: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestCreateNotification(t *testing.T) {
	assert := assert.New(t)
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "recipient_id", "type", "title", "message", "data",
		"is_actionable", "action_url", "is_read", "created_at", "expires_at",
	}).AddRow(int64(1), int64(42), "message", "New message", "You have a new message",
		[]byte(nil), false, nil, false, now, nil)
	mock.ExpectQuery("INSERT INTO notifications").
		WillReturnRows(rows)

	n, err := repo.Create(context.Background(), 42, domain.NotificationContent{
		Type:    domain.NotificationMessage,
		Title:   "New message",
		Message: "You have a new message",
	})
	assert.NoError(err)
	assert.Equal(int64(42), n.RecipientID)
	assert.False(n.IsRead, "new records start unread")

	assert.NoError(mock.ExpectationsWereMet())
}

func TestCountUnread(t *testing.T) {
	assert := assert.New(t)
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(int64(3))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM notifications").
		WillReturnRows(rows)

	total, err := repo.CountUnread(context.Background(), 42)
	assert.NoError(err)
	assert.Equal(int64(3), total)

	assert.NoError(mock.ExpectationsWereMet())
}

func TestMarkAsReadRejectsForeignRecord(t *testing.T) {
	assert := assert.New(t)
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET is_read = TRUE").
		WithArgs(int64(7), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkAsRead(context.Background(), 7, 42)
	assert.ErrorIs(err, domain.ErrNotFound)

	assert.NoError(mock.ExpectationsWereMet())
}

func TestMarkAllAsRead(t *testing.T) {
	assert := assert.New(t)
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE recipient_id").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 5))

	assert.NoError(repo.MarkAllAsRead(context.Background(), 42))
	assert.NoError(mock.ExpectationsWereMet())
}

func TestDeleteAsOwnerAndAdmin(t *testing.T) {
	assert := assert.New(t)
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	// Owner delete constrains on recipient_id.
	mock.ExpectExec("DELETE FROM notifications WHERE id = \\$1 AND recipient_id = \\$2").
		WithArgs(int64(7), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(repo.Delete(context.Background(), 7, 42, false))

	// Admin delete is unconstrained by ownership.
	mock.ExpectExec("DELETE FROM notifications WHERE id = \\$1").
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(repo.Delete(context.Background(), 8, 1, true))

	assert.NoError(mock.ExpectationsWereMet())
}

func TestDeleteExpired(t *testing.T) {
	assert := assert.New(t)
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec("DELETE FROM notifications WHERE expires_at IS NOT NULL").
		WillReturnResult(sqlmock.NewResult(0, 2))

	removed, err := repo.DeleteExpired(context.Background(), time.Now())
	assert.NoError(err)
	assert.Equal(int64(2), removed)

	assert.NoError(mock.ExpectationsWereMet())
}

func TestConnectivityErrorsBecomeStoreUnavailable(t *testing.T) {
	assert := assert.New(t)
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE recipient_id").
		WithArgs(int64(42)).
		WillReturnError(syscall.ECONNREFUSED)

	err := repo.MarkAllAsRead(context.Background(), 42)
	assert.ErrorIs(err, domain.ErrStoreUnavailable)

	assert.NoError(mock.ExpectationsWereMet())
}

func TestNonConnectivityErrorsPassThrough(t *testing.T) {
	assert := assert.New(t)

	err := wrapErr("list notifications", errors.New("syntax error"))
	assert.NotErrorIs(err, domain.ErrStoreUnavailable)
	assert.Contains(err.Error(), "list notifications")
}
