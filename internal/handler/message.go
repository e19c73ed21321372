package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carenest/carenest/internal/domain"
	"github.com/carenest/carenest/internal/service"
)

// MessageHandler handles conversations and direct messages.
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// StartConversation creates a conversation.
func (h *MessageHandler) StartConversation(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var body struct {
		Subject        *string `json:"subject"`
		ParticipantIDs []int64 `json:"participant_ids" validate:"required,min=1"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	conversation, err := h.messages.StartConversation(c.Request().Context(), identity.UserID, body.Subject, body.ParticipantIDs)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusCreated, conversation)
}

// ListConversations returns the user's conversations.
func (h *MessageHandler) ListConversations(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	conversations, err := h.messages.ListConversations(c.Request().Context(), identity.UserID)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, conversations)
}

// ListMessages returns a page of a conversation's messages.
func (h *MessageHandler) ListMessages(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	conversationID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	messages, err := h.messages.ListMessages(c.Request().Context(), conversationID, identity.UserID, limit, offset)
	if err != nil {
		return err
	}

	return JSONList(c, http.StatusOK, messages, PaginationMeta{Limit: limit, Offset: offset})
}

// Send posts a message to a conversation.
func (h *MessageHandler) Send(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	conversationID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var body struct {
		Body string `json:"body" validate:"required,max=4000"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	message, results, err := h.messages.Send(c.Request().Context(), conversationID, identity.UserID, body.Body)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusCreated, map[string]any{
		"message":  message,
		"dispatch": results,
	})
}
