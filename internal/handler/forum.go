package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carenest/carenest/internal/domain"
	"github.com/carenest/carenest/internal/service"
)

// ForumHandler handles forum posts and voting.
type ForumHandler struct {
	forum *service.ForumService
}

// NewForumHandler creates a new ForumHandler.
func NewForumHandler(forum *service.ForumService) *ForumHandler {
	return &ForumHandler{forum: forum}
}

// CreatePost adds a post to a family forum.
func (h *ForumHandler) CreatePost(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	familyID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var body struct {
		Title string `json:"title" validate:"required,max=200"`
		Body  string `json:"body" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	post, err := h.forum.CreatePost(c.Request().Context(), familyID, identity.UserID, body.Title, body.Body)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusCreated, post)
}

// ListPosts returns a family's forum posts.
func (h *ForumHandler) ListPosts(c echo.Context) error {
	familyID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	posts, err := h.forum.ListPosts(c.Request().Context(), familyID, limit, offset)
	if err != nil {
		return err
	}

	return JSONList(c, http.StatusOK, posts, PaginationMeta{Limit: limit, Offset: offset})
}

// Vote records the authenticated user's vote on a post.
func (h *ForumHandler) Vote(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	postID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var body struct {
		Value int `json:"value" validate:"required,oneof=1 -1"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	post, err := h.forum.Vote(c.Request().Context(), postID, identity.UserID, body.Value)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, post)
}
