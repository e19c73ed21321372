package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carenest/carenest/internal/domain"
)

// ConversationRepository handles direct-message conversations and messages.
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *sqlx.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create starts a conversation with the given participants.
func (r *ConversationRepository) Create(ctx context.Context, subject *string, participantIDs []int64) (*domain.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapErr("create conversation", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var conv domain.Conversation
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO conversations (subject) VALUES ($1)
		 RETURNING id, subject, created_at, updated_at`, subject).StructScan(&conv)
	if err != nil {
		return nil, wrapErr("create conversation", err)
	}

	for _, userID := range participantIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, conv.ID, userID)
		if err != nil {
			return nil, wrapErr("add conversation participant", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapErr("create conversation", err)
	}
	return &conv, nil
}

// FindByID retrieves a conversation.
func (r *ConversationRepository) FindByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT id, subject, created_at, updated_at FROM conversations WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("find conversation", err)
	}
	return &conv, nil
}

// ListForUser returns the conversations the user participates in, most
// recently updated first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID int64) ([]domain.Conversation, error) {
	conversations := []domain.Conversation{}
	err := r.db.SelectContext(ctx, &conversations,
		`SELECT c.id, c.subject, c.created_at, c.updated_at
		 FROM conversations c
		 JOIN conversation_participants p ON p.conversation_id = c.id
		 WHERE p.user_id = $1
		 ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, wrapErr("list conversations", err)
	}
	return conversations, nil
}

// ParticipantIDs returns the user ids of every participant in the conversation.
func (r *ConversationRepository) ParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM conversation_participants WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return nil, wrapErr("list conversation participants", err)
	}
	return ids, nil
}

// IsParticipant reports whether the user belongs to the conversation.
func (r *ConversationRepository) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (
		   SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2
		 )`, conversationID, userID)
	if err != nil {
		return false, wrapErr("check conversation participant", err)
	}
	return exists, nil
}

// CreateMessage appends a message to a conversation and bumps its updated_at.
func (r *ConversationRepository) CreateMessage(ctx context.Context, conversationID, senderID int64, body string) (*domain.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapErr("create message", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var msg domain.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, body) VALUES ($1, $2, $3)
		 RETURNING id, conversation_id, sender_id, body, created_at`,
		conversationID, senderID, body).StructScan(&msg)
	if err != nil {
		return nil, wrapErr("create message", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID); err != nil {
		return nil, wrapErr("create message", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapErr("create message", err)
	}
	return &msg, nil
}

// ListMessages returns a page of the conversation's messages, oldest first.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}

	messages := []domain.Message{}
	err := r.db.SelectContext(ctx, &messages,
		`SELECT id, conversation_id, sender_id, body, created_at
		 FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at ASC
		 LIMIT $2 OFFSET $3`, conversationID, limit, offset)
	if err != nil {
		return nil, wrapErr("list messages", err)
	}
	return messages, nil
}
