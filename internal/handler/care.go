package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carenest/carenest/internal/domain"
	"github.com/carenest/carenest/internal/service"
)

// CareHandler handles families and care updates.
type CareHandler struct {
	care *service.CareService
}

// NewCareHandler creates a new CareHandler.
func NewCareHandler(care *service.CareService) *CareHandler {
	return &CareHandler{care: care}
}

// CreateFamily creates a family owned by the authenticated user.
func (h *CareHandler) CreateFamily(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var body struct {
		Name        string  `json:"name" validate:"required,max=200"`
		Description *string `json:"description"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	family, err := h.care.CreateFamily(c.Request().Context(), body.Name, body.Description, identity.UserID)
	if err != nil {
		return err
	}

	return JSON(c, http.StatusCreated, family)
}

// AddMember adds a user to a family. Admin only.
func (h *CareHandler) AddMember(c echo.Context) error {
	familyID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var body struct {
		UserID int64 `json:"user_id" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	if err := h.care.AddMember(c.Request().Context(), familyID, body.UserID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCareUpdates returns a family's care updates.
func (h *CareHandler) ListCareUpdates(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	familyID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	updates, err := h.care.ListCareUpdates(c.Request().Context(), familyID, identity.UserID, queryInt(c, "limit", 50))
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, updates)
}

// ListResources returns a family's shared resources.
func (h *CareHandler) ListResources(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	familyID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	resources, err := h.care.ListResources(c.Request().Context(), familyID, identity.UserID, queryInt(c, "limit", 50))
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, resources)
}

// ShareResource records a shared resource and notifies the family.
func (h *CareHandler) ShareResource(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	familyID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var body struct {
		Title       string  `json:"title" validate:"required,max=200"`
		Description *string `json:"description"`
		URL         string  `json:"url" validate:"required,url"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	resource, err := h.care.ShareResource(c.Request().Context(), domain.Resource{
		FamilyID:    familyID,
		UploaderID:  identity.UserID,
		Title:       body.Title,
		Description: body.Description,
		URL:         body.URL,
	})
	if err != nil {
		return err
	}

	return JSON(c, http.StatusCreated, resource)
}

// RemoveResource deletes a shared resource.
func (h *CareHandler) RemoveResource(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.care.RemoveResource(c.Request().Context(), id, identity.UserID, identity.Role); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// PostCareUpdate records a care update and notifies the family.
func (h *CareHandler) PostCareUpdate(c echo.Context) error {
	identity, ok := GetIdentity(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	familyID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var body struct {
		Severity string `json:"severity" validate:"required,oneof=info important emergency"`
		Title    string `json:"title" validate:"required,max=200"`
		Body     string `json:"body" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	update, results, err := h.care.PostCareUpdate(c.Request().Context(), domain.CareUpdate{
		FamilyID: familyID,
		AuthorID: identity.UserID,
		Severity: domain.CareUpdateSeverity(body.Severity),
		Title:    body.Title,
		Body:     body.Body,
	})
	if err != nil {
		return err
	}

	return JSON(c, http.StatusCreated, map[string]any{
		"update":   update,
		"dispatch": results,
	})
}
