package service

import (
	"context"
	"fmt"

	"github.com/carenest/carenest/internal/domain"
)

// ForumStore is the forum persistence contract.
type ForumStore interface {
	CreatePost(ctx context.Context, familyID, authorID int64, title, body string) (*domain.ForumPost, error)
	FindPost(ctx context.Context, id int64) (*domain.ForumPost, error)
	ListPosts(ctx context.Context, familyID int64, limit, offset int) ([]domain.ForumPost, error)
	Vote(ctx context.Context, postID, userID int64, value int) (*domain.ForumPost, error)
}

// ForumService handles forum posts and voting.
type ForumService struct {
	forum      ForumStore
	families   FamilyStore
	dispatcher *NotificationDispatcher
}

// NewForumService creates a ForumService.
func NewForumService(forum ForumStore, families FamilyStore, dispatcher *NotificationDispatcher) *ForumService {
	return &ForumService{forum: forum, families: families, dispatcher: dispatcher}
}

// CreatePost adds a post to the family forum. Members only.
func (s *ForumService) CreatePost(ctx context.Context, familyID, authorID int64, title, body string) (*domain.ForumPost, error) {
	ok, err := s.families.IsMember(ctx, familyID, authorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrForbidden
	}
	return s.forum.CreatePost(ctx, familyID, authorID, title, body)
}

// ListPosts returns the family's posts.
func (s *ForumService) ListPosts(ctx context.Context, familyID int64, limit, offset int) ([]domain.ForumPost, error) {
	return s.forum.ListPosts(ctx, familyID, limit, offset)
}

// Vote records the voter's vote and notifies the post author. Voting on
// your own post records the vote but dispatches nothing.
func (s *ForumService) Vote(ctx context.Context, postID, voterID int64, value int) (*domain.ForumPost, error) {
	if value != 1 && value != -1 {
		return nil, fmt.Errorf("%w: vote value must be 1 or -1", domain.ErrInvalidInput)
	}

	post, err := s.forum.FindPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	updated, err := s.forum.Vote(ctx, postID, voterID, value)
	if err != nil {
		return nil, err
	}

	if post.AuthorID != voterID {
		s.dispatcher.Dispatch(ctx, "", []int64{post.AuthorID}, domain.NotificationContent{
			Type:    domain.NotificationFamilyActivity,
			Title:   "New vote on your post",
			Message: fmt.Sprintf("Your post %q received a vote", post.Title),
		})
	}

	return updated, nil
}
