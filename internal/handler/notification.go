package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/carenest/carenest/internal/domain"
	"github.com/carenest/carenest/internal/service"
)

// NotificationHandler handles the notification inbox endpoints.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the authenticated user's notifications.
func (h *NotificationHandler) List(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	filter := domain.NotificationFilter{
		UnreadOnly: c.QueryParam("unread") == "true",
		Limit:      queryInt(c, "limit", 50),
		Offset:     queryInt(c, "offset", 0),
	}
	if raw := c.QueryParam("type"); raw != "" {
		notificationType := domain.NotificationType(raw)
		if !notificationType.Valid() {
			return fmt.Errorf("%w: unknown notification type %q", domain.ErrInvalidInput, raw)
		}
		filter.Type = &notificationType
	}

	notifications, err := h.notifications.List(c.Request().Context(), identity.UserID, filter)
	if err != nil {
		return err
	}

	return JSONList(c, http.StatusOK, notifications, PaginationMeta{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// UnreadCount returns the authenticated user's unread badge count.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	total, err := h.notifications.CountUnread(c.Request().Context(), identity.UserID)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, map[string]int64{"unread": total})
}

// MarkAsRead marks one notification as read.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.notifications.MarkAsRead(c.Request().Context(), id, identity.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllAsRead marks all of the user's notifications as read.
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	if err := h.notifications.MarkAllAsRead(c.Request().Context(), identity.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a notification.
func (h *NotificationHandler) Delete(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.notifications.Delete(c.Request().Context(), id, identity.UserID, identity.Role); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Announce dispatches a system announcement to a family. Admin only.
func (h *NotificationHandler) Announce(c echo.Context) error {
	var body struct {
		FamilyID int64  `json:"family_id" validate:"required"`
		Title    string `json:"title" validate:"required,max=200"`
		Message  string `json:"message" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	results, err := h.notifications.Announce(c.Request().Context(), body.FamilyID, domain.NotificationContent{
		Type:    domain.NotificationSystemAnnouncement,
		Title:   body.Title,
		Message: body.Message,
	})
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, results)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", domain.ErrInvalidInput, name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, defaultValue int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return defaultValue
	}
	return v
}
