package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carenest/carenest/internal/domain"
	"github.com/carenest/carenest/internal/realtime"
	"github.com/carenest/carenest/internal/service"
)

// StreamHandler serves the live event streams over SSE.
type StreamHandler struct {
	broadcaster   *realtime.Broadcaster
	registry      *realtime.Registry
	conversations service.ConversationStore
	heartbeat     time.Duration
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(broadcaster *realtime.Broadcaster, registry *realtime.Registry, conversations service.ConversationStore, heartbeat time.Duration) *StreamHandler {
	return &StreamHandler{
		broadcaster:   broadcaster,
		registry:      registry,
		conversations: conversations,
		heartbeat:     heartbeat,
	}
}

// Personal streams the authenticated user's personal channel, which carries
// notification badge pushes.
func (h *StreamHandler) Personal(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	return h.stream(c, realtime.UserTopic(identity.UserID), identity.UserID)
}

// Conversation streams a conversation's live events. Participants only.
func (h *StreamHandler) Conversation(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	conversationID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	isParticipant, err := h.conversations.IsParticipant(c.Request().Context(), conversationID, identity.UserID)
	if err != nil {
		return err
	}
	if !isParticipant {
		return domain.ErrForbidden
	}

	return h.stream(c, realtime.ConversationTopic(conversationID), identity.UserID)
}

// stream registers the connection, forwards events until the client goes
// away, and keeps the registry record alive with heartbeat comments.
func (h *StreamHandler) stream(c echo.Context, topicID string, userID int64) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	events, cancel := h.broadcaster.Subscribe(topicID, userID)
	defer cancel()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, open := <-events:
			if !open {
				return nil
			}
			if err := writeEvent(w, event); err != nil {
				return nil
			}
			w.Flush()
		case <-ticker.C:
			h.registry.Touch(topicID, userID)
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeEvent(w *echo.Response, event realtime.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
