package service

import (
	"context"
	"log/slog"

	"github.com/carenest/carenest/internal/domain"
)

// FamilyStore is the family persistence contract.
type FamilyStore interface {
	Create(ctx context.Context, name string, description *string, ownerID int64) (*domain.Family, error)
	FindByID(ctx context.Context, id int64) (*domain.Family, error)
	AddMember(ctx context.Context, familyID, userID int64) error
	MemberIDs(ctx context.Context, familyID int64) ([]int64, error)
	IsMember(ctx context.Context, familyID, userID int64) (bool, error)
	CreateCareUpdate(ctx context.Context, update domain.CareUpdate) (*domain.CareUpdate, error)
	ListCareUpdates(ctx context.Context, familyID int64, limit int) ([]domain.CareUpdate, error)
}

// ResourceStore is the shared resource persistence contract.
type ResourceStore interface {
	Create(ctx context.Context, resource domain.Resource) (*domain.Resource, error)
	ListForFamily(ctx context.Context, familyID int64, limit int) ([]domain.Resource, error)
	Delete(ctx context.Context, id, userID int64, isAdmin bool) error
}

// CareService handles families, care updates, and shared resources,
// dispatching notifications as updates are posted.
type CareService struct {
	families   FamilyStore
	resources  ResourceStore
	dispatcher *NotificationDispatcher
}

// NewCareService creates a CareService.
func NewCareService(families FamilyStore, resources ResourceStore, dispatcher *NotificationDispatcher) *CareService {
	return &CareService{families: families, resources: resources, dispatcher: dispatcher}
}

// CreateFamily creates a family owned by the user.
func (s *CareService) CreateFamily(ctx context.Context, name string, description *string, ownerID int64) (*domain.Family, error) {
	return s.families.Create(ctx, name, description, ownerID)
}

// AddMember adds a user to the family.
func (s *CareService) AddMember(ctx context.Context, familyID, userID int64) error {
	return s.families.AddMember(ctx, familyID, userID)
}

// ListCareUpdates returns the family's care updates. Members only.
func (s *CareService) ListCareUpdates(ctx context.Context, familyID, userID int64, limit int) ([]domain.CareUpdate, error) {
	if err := s.requireMember(ctx, familyID, userID); err != nil {
		return nil, err
	}
	return s.families.ListCareUpdates(ctx, familyID, limit)
}

// PostCareUpdate records a care update and notifies the rest of the family.
// Emergency-severity updates dispatch as emergency alerts; everything else
// is a care update. The author is excluded from the recipients.
func (s *CareService) PostCareUpdate(ctx context.Context, update domain.CareUpdate) (*domain.CareUpdate, []domain.DispatchResult, error) {
	if err := s.requireMember(ctx, update.FamilyID, update.AuthorID); err != nil {
		return nil, nil, err
	}

	created, err := s.families.CreateCareUpdate(ctx, update)
	if err != nil {
		return nil, nil, err
	}

	// The update itself is saved at this point; failing to notify is not a
	// reason to fail the request.
	members, err := s.families.MemberIDs(ctx, update.FamilyID)
	if err != nil {
		slog.Error("care update notification fan-out skipped",
			"family_id", update.FamilyID, "error", err)
		return created, nil, nil
	}

	recipients := make([]int64, 0, len(members)-1)
	for _, id := range members {
		if id != update.AuthorID {
			recipients = append(recipients, id)
		}
	}

	notificationType := domain.NotificationCareUpdate
	if update.Severity == domain.SeverityEmergency {
		notificationType = domain.NotificationEmergencyAlert
	}

	results := s.dispatcher.Dispatch(ctx, "", recipients, domain.NotificationContent{
		Type:         notificationType,
		Title:        created.Title,
		Message:      created.Body,
		IsActionable: update.Severity == domain.SeverityEmergency,
	})

	return created, results, nil
}

// ShareResource records a shared resource and notifies the rest of the
// family. Members only.
func (s *CareService) ShareResource(ctx context.Context, resource domain.Resource) (*domain.Resource, error) {
	if err := s.requireMember(ctx, resource.FamilyID, resource.UploaderID); err != nil {
		return nil, err
	}

	created, err := s.resources.Create(ctx, resource)
	if err != nil {
		return nil, err
	}

	members, err := s.families.MemberIDs(ctx, resource.FamilyID)
	if err != nil {
		slog.Error("resource notification fan-out skipped",
			"family_id", resource.FamilyID, "error", err)
		return created, nil
	}

	recipients := make([]int64, 0, len(members)-1)
	for _, id := range members {
		if id != resource.UploaderID {
			recipients = append(recipients, id)
		}
	}

	s.dispatcher.Dispatch(ctx, "", recipients, domain.NotificationContent{
		Type:         domain.NotificationFamilyActivity,
		Title:        "New shared resource",
		Message:      created.Title,
		IsActionable: true,
		ActionURL:    &created.URL,
	})

	return created, nil
}

// ListResources returns the family's shared resources. Members only.
func (s *CareService) ListResources(ctx context.Context, familyID, userID int64, limit int) ([]domain.Resource, error) {
	if err := s.requireMember(ctx, familyID, userID); err != nil {
		return nil, err
	}
	return s.resources.ListForFamily(ctx, familyID, limit)
}

// RemoveResource deletes a shared resource, subject to ownership unless the
// caller is an administrator.
func (s *CareService) RemoveResource(ctx context.Context, id, userID int64, role domain.Role) error {
	return s.resources.Delete(ctx, id, userID, role == domain.RoleAdmin)
}

func (s *CareService) requireMember(ctx context.Context, familyID, userID int64) error {
	ok, err := s.families.IsMember(ctx, familyID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}
