package service

import (
	"context"
	"sync"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/notifications"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByAuthIDFn   func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	usernameTakenFn func(context.Context, string, uint) (bool, error)
	createFn        func(context.Context, *models.User) error
	updateProfileFn func(context.Context, uint, map[string]interface{}) (*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByAuthID(ctx context.Context, authID string) (*models.User, error) {
	return s.getByAuthIDFn(ctx, authID)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return s.usernameTakenFn(ctx, username, excludeID)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateProfile(ctx context.Context, id uint, updates map[string]interface{}) (*models.User, error) {
	return s.updateProfileFn(ctx, id, updates)
}

func noopUserRepo() *userRepoStub {
	notFound := func() error { return models.NewNotFoundMessage("User not found") }
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, _ uint) (*models.User, error) { return nil, notFound() },
		getByAuthIDFn:   func(_ context.Context, _ string) (*models.User, error) { return nil, notFound() },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, notFound() },
		usernameTakenFn: func(_ context.Context, _ string, _ uint) (bool, error) { return false, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateProfileFn: func(_ context.Context, id uint, _ map[string]interface{}) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
	}
}

// submissionRepoStub is a stub for repository.SubmissionRepository.
type submissionRepoStub struct {
	createFn        func(context.Context, *models.Submission) error
	getByIDFn       func(context.Context, uint) (*models.Submission, error)
	listPageFn      func(context.Context, uint, uint, int) ([]*models.Submission, error)
	recentPublicFn  func(context.Context) ([]*models.Submission, error)
	recommendFn     func(context.Context, []string, []string, []uint, int) ([]*models.Submission, error)
	countByAuthorFn func(context.Context, uint, bool) (int64, error)
	listByAuthorFn  func(context.Context, uint, bool, int) ([]*models.Submission, error)
}

func (s *submissionRepoStub) Create(ctx context.Context, submission *models.Submission) error {
	return s.createFn(ctx, submission)
}
func (s *submissionRepoStub) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	return s.getByIDFn(ctx, id)
}
func (s *submissionRepoStub) ListPage(ctx context.Context, viewerID, cursor uint, limit int) ([]*models.Submission, error) {
	return s.listPageFn(ctx, viewerID, cursor, limit)
}
func (s *submissionRepoStub) RecentPublic(ctx context.Context) ([]*models.Submission, error) {
	return s.recentPublicFn(ctx)
}
func (s *submissionRepoStub) Recommend(ctx context.Context, tags, categories []string, excludeIDs []uint, limit int) ([]*models.Submission, error) {
	return s.recommendFn(ctx, tags, categories, excludeIDs, limit)
}
func (s *submissionRepoStub) CountByAuthor(ctx context.Context, authorID uint, publicOnly bool) (int64, error) {
	return s.countByAuthorFn(ctx, authorID, publicOnly)
}
func (s *submissionRepoStub) ListByAuthor(ctx context.Context, authorID uint, publicOnly bool, limit int) ([]*models.Submission, error) {
	return s.listByAuthorFn(ctx, authorID, publicOnly, limit)
}

func noopSubmissionRepo() *submissionRepoStub {
	return &submissionRepoStub{
		createFn: func(_ context.Context, _ *models.Submission) error { return nil },
		getByIDFn: func(_ context.Context, _ uint) (*models.Submission, error) {
			return nil, models.NewNotFoundMessage("Submission not found")
		},
		listPageFn:     func(_ context.Context, _, _ uint, _ int) ([]*models.Submission, error) { return nil, nil },
		recentPublicFn: func(_ context.Context) ([]*models.Submission, error) { return nil, nil },
		recommendFn: func(_ context.Context, _, _ []string, _ []uint, _ int) ([]*models.Submission, error) {
			return nil, nil
		},
		countByAuthorFn: func(_ context.Context, _ uint, _ bool) (int64, error) { return 0, nil },
		listByAuthorFn:  func(_ context.Context, _ uint, _ bool, _ int) ([]*models.Submission, error) { return nil, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn           func(context.Context, *models.Comment) error
	listBySubmissionFn func(context.Context, uint) ([]*models.Comment, error)
	countByAuthorFn    func(context.Context, uint) (int64, error)
	recentByAuthorFn   func(context.Context, uint, int) ([]models.CommentActivity, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) ListBySubmission(ctx context.Context, submissionID uint) ([]*models.Comment, error) {
	return s.listBySubmissionFn(ctx, submissionID)
}
func (s *commentRepoStub) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.countByAuthorFn(ctx, authorID)
}
func (s *commentRepoStub) RecentByAuthor(ctx context.Context, authorID uint, limit int) ([]models.CommentActivity, error) {
	return s.recentByAuthorFn(ctx, authorID, limit)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:           func(_ context.Context, _ *models.Comment) error { return nil },
		listBySubmissionFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		countByAuthorFn:    func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		recentByAuthorFn:   func(_ context.Context, _ uint, _ int) ([]models.CommentActivity, error) { return nil, nil },
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	toggleFn      func(context.Context, uint, uint) (*models.FollowState, error)
	countsFn      func(context.Context, uint) (int64, int64, error)
	isFollowingFn func(context.Context, uint, uint) (bool, error)
}

func (s *followRepoStub) Toggle(ctx context.Context, followerID, followingID uint) (*models.FollowState, error) {
	return s.toggleFn(ctx, followerID, followingID)
}
func (s *followRepoStub) Counts(ctx context.Context, userID uint) (int64, int64, error) {
	return s.countsFn(ctx, userID)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followingID)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		toggleFn:      func(_ context.Context, _, _ uint) (*models.FollowState, error) { return &models.FollowState{}, nil },
		countsFn:      func(_ context.Context, _ uint) (int64, int64, error) { return 0, 0, nil },
		isFollowingFn: func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
	}
}

// viewRepoStub is a stub for repository.ViewRepository.
type viewRepoStub struct {
	recordFn           func(context.Context, *models.View) error
	incrementTagPrefFn func(context.Context, uint, string) error
	topTagPrefsFn      func(context.Context, uint, int) ([]models.TagPref, error)
	recentViewedIDsFn  func(context.Context, uint, int) ([]uint, error)
}

func (s *viewRepoStub) Record(ctx context.Context, view *models.View) error {
	return s.recordFn(ctx, view)
}
func (s *viewRepoStub) IncrementTagPref(ctx context.Context, userID uint, tag string) error {
	return s.incrementTagPrefFn(ctx, userID, tag)
}
func (s *viewRepoStub) TopTagPrefs(ctx context.Context, userID uint, limit int) ([]models.TagPref, error) {
	return s.topTagPrefsFn(ctx, userID, limit)
}
func (s *viewRepoStub) RecentViewedIDs(ctx context.Context, userID uint, limit int) ([]uint, error) {
	return s.recentViewedIDsFn(ctx, userID, limit)
}

func noopViewRepo() *viewRepoStub {
	return &viewRepoStub{
		recordFn:           func(_ context.Context, _ *models.View) error { return nil },
		incrementTagPrefFn: func(_ context.Context, _ uint, _ string) error { return nil },
		topTagPrefsFn:      func(_ context.Context, _ uint, _ int) ([]models.TagPref, error) { return nil, nil },
		recentViewedIDsFn:  func(_ context.Context, _ uint, _ int) ([]uint, error) { return nil, nil },
	}
}

// publisherStub records published events.
type publisherStub struct {
	mu     sync.Mutex
	events map[uint][]notifications.Event
	err    error
}

func (p *publisherStub) PublishUser(_ context.Context, userID uint, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[uint][]notifications.Event)
	}
	p.events[userID] = append(p.events[userID], event)
	return p.err
}

func (p *publisherStub) sent(userID uint) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[userID]
}
