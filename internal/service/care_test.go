package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carenest/carenest/internal/domain"
)

type fakeFamilyStore struct {
	members map[int64][]int64
	updates []domain.CareUpdate
	nextID  int64
}

func newFakeFamilyStore(members map[int64][]int64) *fakeFamilyStore {
	return &fakeFamilyStore{members: members}
}

func (s *fakeFamilyStore) Create(_ context.Context, name string, description *string, ownerID int64) (*domain.Family, error) {
	s.nextID++
	s.members[s.nextID] = []int64{ownerID}
	return &domain.Family{ID: s.nextID, Name: name, Description: description, OwnerID: ownerID}, nil
}

func (s *fakeFamilyStore) FindByID(_ context.Context, id int64) (*domain.Family, error) {
	if _, ok := s.members[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Family{ID: id}, nil
}

func (s *fakeFamilyStore) AddMember(_ context.Context, familyID, userID int64) error {
	s.members[familyID] = append(s.members[familyID], userID)
	return nil
}

func (s *fakeFamilyStore) MemberIDs(_ context.Context, familyID int64) ([]int64, error) {
	return s.members[familyID], nil
}

func (s *fakeFamilyStore) IsMember(_ context.Context, familyID, userID int64) (bool, error) {
	for _, id := range s.members[familyID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeFamilyStore) CreateCareUpdate(_ context.Context, update domain.CareUpdate) (*domain.CareUpdate, error) {
	s.nextID++
	update.ID = s.nextID
	s.updates = append(s.updates, update)
	return &update, nil
}

func (s *fakeFamilyStore) ListCareUpdates(_ context.Context, familyID int64, _ int) ([]domain.CareUpdate, error) {
	var out []domain.CareUpdate
	for _, u := range s.updates {
		if u.FamilyID == familyID {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeResourceStore struct {
	resources []domain.Resource
	nextID    int64
}

func (s *fakeResourceStore) Create(_ context.Context, resource domain.Resource) (*domain.Resource, error) {
	s.nextID++
	resource.ID = s.nextID
	s.resources = append(s.resources, resource)
	return &resource, nil
}

func (s *fakeResourceStore) ListForFamily(_ context.Context, familyID int64, _ int) ([]domain.Resource, error) {
	var out []domain.Resource
	for _, r := range s.resources {
		if r.FamilyID == familyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeResourceStore) Delete(_ context.Context, id, userID int64, isAdmin bool) error {
	for i, r := range s.resources {
		if r.ID != id {
			continue
		}
		if !isAdmin && r.UploaderID != userID {
			return domain.ErrNotFound
		}
		s.resources = append(s.resources[:i], s.resources[i+1:]...)
		return nil
	}
	return domain.ErrNotFound
}

func newCareFixture(members map[int64][]int64) (*CareService, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	publisher := newFakePublisher()
	dispatcher := NewNotificationDispatcher(store, newFakePresence(), publisher)
	svc := NewCareService(newFakeFamilyStore(members), &fakeResourceStore{}, dispatcher)
	return svc, store, publisher
}

func TestPostCareUpdateNotifiesFamilyExceptAuthor(t *testing.T) {
	svc, store, _ := newCareFixture(map[int64][]int64{10: {1, 2, 3}})

	created, results, err := svc.PostCareUpdate(context.Background(), domain.CareUpdate{
		FamilyID: 10,
		AuthorID: 1,
		Severity: domain.SeverityInfo,
		Title:    "Afternoon walk went well",
		Body:     "Short walk around the block, no issues.",
	})

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Len(t, results, 2)
	assert.Empty(t, store.createdFor(1))
	for _, recipient := range []int64{2, 3} {
		records := store.createdFor(recipient)
		assert.Len(t, records, 1)
		assert.Equal(t, domain.NotificationCareUpdate, records[0].Type)
	}
}

func TestPostCareUpdateEmergencyDispatchesAlert(t *testing.T) {
	svc, store, _ := newCareFixture(map[int64][]int64{10: {1, 2}})

	_, results, err := svc.PostCareUpdate(context.Background(), domain.CareUpdate{
		FamilyID: 10,
		AuthorID: 1,
		Severity: domain.SeverityEmergency,
		Title:    "Fall in the kitchen",
		Body:     "Calling the on-call nurse now.",
	})

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.True(t, results[0].Persisted)

	records := store.createdFor(2)
	assert.Len(t, records, 1)
	assert.Equal(t, domain.NotificationEmergencyAlert, records[0].Type)
}

func TestPostCareUpdateRejectsNonMember(t *testing.T) {
	svc, _, _ := newCareFixture(map[int64][]int64{10: {1, 2}})

	_, _, err := svc.PostCareUpdate(context.Background(), domain.CareUpdate{
		FamilyID: 10,
		AuthorID: 99,
		Severity: domain.SeverityInfo,
		Title:    "outsider",
		Body:     "should not land",
	})

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestShareResourceNotifiesFamily(t *testing.T) {
	svc, store, _ := newCareFixture(map[int64][]int64{10: {1, 2, 3}})

	created, err := svc.ShareResource(context.Background(), domain.Resource{
		FamilyID:   10,
		UploaderID: 2,
		Title:      "Medication schedule",
		URL:        "https://example.com/med-schedule.pdf",
	})

	assert.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Empty(t, store.createdFor(2))
	for _, recipient := range []int64{1, 3} {
		records := store.createdFor(recipient)
		assert.Len(t, records, 1)
		assert.Equal(t, domain.NotificationFamilyActivity, records[0].Type)
		assert.NotNil(t, records[0].ActionURL)
	}
}

func TestListResourcesRequiresMembership(t *testing.T) {
	svc, _, _ := newCareFixture(map[int64][]int64{10: {1}})

	_, err := svc.ListResources(context.Background(), 10, 42, 20)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
