package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carenest/carenest/internal/domain"
	"github.com/carenest/carenest/internal/realtime"
)

// ConversationStore is the conversation persistence contract.
type ConversationStore interface {
	Create(ctx context.Context, subject *string, participantIDs []int64) (*domain.Conversation, error)
	FindByID(ctx context.Context, id int64) (*domain.Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]domain.Conversation, error)
	ParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	CreateMessage(ctx context.Context, conversationID, senderID int64, body string) (*domain.Message, error)
	ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]domain.Message, error)
}

// EventMessageCreated is broadcast on the conversation topic when a message
// is posted.
const EventMessageCreated = "message.created"

// MessageService handles direct messaging and the notification fan-out a new
// message triggers.
type MessageService struct {
	conversations ConversationStore
	dispatcher    *NotificationDispatcher
	publisher     Publisher
}

// NewMessageService creates a MessageService.
func NewMessageService(conversations ConversationStore, dispatcher *NotificationDispatcher, publisher Publisher) *MessageService {
	return &MessageService{
		conversations: conversations,
		dispatcher:    dispatcher,
		publisher:     publisher,
	}
}

// StartConversation creates a conversation between the creator and the other
// participants.
func (s *MessageService) StartConversation(ctx context.Context, creatorID int64, subject *string, participantIDs []int64) (*domain.Conversation, error) {
	ids := []int64{creatorID}
	for _, id := range participantIDs {
		if id != creatorID {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: a conversation needs at least two participants", domain.ErrInvalidInput)
	}
	return s.conversations.Create(ctx, subject, ids)
}

// ListConversations returns the user's conversations.
func (s *MessageService) ListConversations(ctx context.Context, userID int64) ([]domain.Conversation, error) {
	return s.conversations.ListForUser(ctx, userID)
}

// ListMessages returns a page of a conversation's messages. Only
// participants may read.
func (s *MessageService) ListMessages(ctx context.Context, conversationID, userID int64, limit, offset int) ([]domain.Message, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.conversations.ListMessages(ctx, conversationID, limit, offset)
}

// Send posts a message: it is persisted, broadcast to everyone viewing the
// conversation, and dispatched as a notification to every other participant.
// The sender is excluded from the recipients here, before dispatch.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID int64, body string) (*domain.Message, []domain.DispatchResult, error) {
	if err := s.requireParticipant(ctx, conversationID, senderID); err != nil {
		return nil, nil, err
	}

	message, err := s.conversations.CreateMessage(ctx, conversationID, senderID, body)
	if err != nil {
		return nil, nil, err
	}

	topic := realtime.ConversationTopic(conversationID)
	s.publisher.Broadcast(topic, realtime.NewEvent(EventMessageCreated, message))

	participants, err := s.conversations.ParticipantIDs(ctx, conversationID)
	if err != nil {
		// The message exists; recipients reconcile on their next poll.
		slog.Error("message notification fan-out skipped",
			"conversation_id", conversationID, "error", err)
		return message, nil, nil
	}

	recipients := make([]int64, 0, len(participants)-1)
	for _, id := range participants {
		if id != senderID {
			recipients = append(recipients, id)
		}
	}

	results := s.dispatcher.Dispatch(ctx, topic, recipients, domain.NotificationContent{
		Type:    domain.NotificationMessage,
		Title:   "New message",
		Message: body,
	})

	return message, results, nil
}

func (s *MessageService) requireParticipant(ctx context.Context, conversationID, userID int64) error {
	ok, err := s.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}
