package service

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
	"github.com/tsamuels456/unboundedfigures/internal/validation"
)

const (
	dashboardActivityLimit   = 20
	dashboardRecentWorkLimit = 5
	publicProfileSubmissions = 50
)

type ProfileService struct {
	userRepo       repository.UserRepository
	submissionRepo repository.SubmissionRepository
	commentRepo    repository.CommentRepository
	followRepo     repository.FollowRepository
}

// UpdateProfileInput is the PATCH /api/me payload. Nil fields are left untouched.
type UpdateProfileInput struct {
	Username    *string `json:"username" validate:"omitempty,min=3,max=30,username"`
	DisplayName *string `json:"displayName" validate:"omitempty,max=80"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL   *string `json:"avatarUrl" validate:"omitempty,avatarurl"`
}

func NewProfileService(
	userRepo repository.UserRepository,
	submissionRepo repository.SubmissionRepository,
	commentRepo repository.CommentRepository,
	followRepo repository.FollowRepository,
) *ProfileService {
	return &ProfileService{
		userRepo:       userRepo,
		submissionRepo: submissionRepo,
		commentRepo:    commentRepo,
		followRepo:     followRepo,
	}
}

func (s *ProfileService) Me(ctx context.Context, user *models.User) (*models.MeResponse, error) {
	count, err := s.submissionRepo.CountByAuthor(ctx, user.ID, false)
	if err != nil {
		return nil, err
	}
	return &models.MeResponse{
		ID:              user.ID,
		Username:        user.Username,
		DisplayName:     user.DisplayName,
		Bio:             user.Bio,
		AvatarURL:       user.AvatarURL,
		Role:            user.Role,
		CreatedAt:       user.CreatedAt,
		SubmissionCount: count,
	}, nil
}

func (in *UpdateProfileInput) normalize() {
	if in.Username != nil {
		v := strings.TrimSpace(*in.Username)
		if v == "" {
			in.Username = nil
		} else {
			in.Username = &v
		}
	}
	if in.DisplayName != nil {
		v := strings.TrimSpace(*in.DisplayName)
		in.DisplayName = &v
	}
	if in.Bio != nil {
		v := validation.PlainText(*in.Bio)
		in.Bio = &v
	}
	if in.AvatarURL != nil {
		v := strings.TrimSpace(*in.AvatarURL)
		in.AvatarURL = &v
	}
}

func (s *ProfileService) UpdateMe(ctx context.Context, user *models.User, in UpdateProfileInput) (*models.User, error) {
	in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{}, 4)
	if in.Username != nil && *in.Username != user.Username {
		updates["username"] = *in.Username
	}
	if in.DisplayName != nil {
		updates["display_name"] = *in.DisplayName
	}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = *in.AvatarURL
	}

	updated, err := s.userRepo.UpdateProfile(ctx, user.ID, updates)
	if err != nil {
		return nil, err
	}
	cache.InvalidateProfile(ctx, user.Username, updated.Username)
	return updated, nil
}

// UsernameAvailable checks for a collision, ignoring the caller's own row when callerID is set.
func (s *ProfileService) UsernameAvailable(ctx context.Context, username string, callerID uint) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, models.NewValidationError("Missing username")
	}
	taken, err := s.userRepo.UsernameTaken(ctx, username, callerID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *ProfileService) Dashboard(ctx context.Context, user *models.User) (*models.Dashboard, error) {
	var (
		stats       models.ProfileStats
		submissions []*models.Submission
		comments    []models.CommentActivity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Submissions, err = s.submissionRepo.CountByAuthor(gctx, user.ID, false)
		return err
	})
	g.Go(func() (err error) {
		stats.Comments, err = s.commentRepo.CountByAuthor(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		stats.Followers, stats.Following, err = s.followRepo.Counts(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		submissions, err = s.submissionRepo.ListByAuthor(gctx, user.ID, false, dashboardActivityLimit)
		return err
	})
	g.Go(func() (err error) {
		comments, err = s.commentRepo.RecentByAuthor(gctx, user.ID, dashboardActivityLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recent := make([]models.RecentWork, 0, dashboardRecentWorkLimit)
	for i, sub := range submissions {
		if i == dashboardRecentWorkLimit {
			break
		}
		recent = append(recent, models.RecentWork{
			ID:           sub.ID,
			Title:        sub.Title,
			CreatedAt:    sub.CreatedAt,
			Category:     sub.Category,
			CommentCount: sub.CommentCount,
		})
	}

	return &models.Dashboard{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Stats:       stats,
		Activity:    MergeActivity(submissions, comments),
		RecentWork:  recent,
	}, nil
}

// MergeActivity interleaves submissions and comments newest first. At the same instant
// submissions sort before comments, then higher ids first.
func MergeActivity(submissions []*models.Submission, comments []models.CommentActivity) []models.ActivityItem {
	items := make([]models.ActivityItem, 0, len(submissions)+len(comments))
	for _, sub := range submissions {
		items = append(items, models.ActivityItem{
			Type:      models.ActivitySubmission,
			ID:        sub.ID,
			CreatedAt: sub.CreatedAt,
			Title:     sub.Title,
		})
	}
	for _, c := range comments {
		items = append(items, models.ActivityItem{
			Type:         models.ActivityComment,
			ID:           c.ID,
			CreatedAt:    c.CreatedAt,
			Title:        c.SubmissionTitle,
			Content:      c.Content,
			SubmissionID: c.SubmissionID,
		})
	}

	rank := func(kind string) int {
		if kind == models.ActivitySubmission {
			return 0
		}
		return 1
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if rank(a.Type) != rank(b.Type) {
			return rank(a.Type) < rank(b.Type)
		}
		return a.ID > b.ID
	})
	return items
}

// PublicProfile returns the public page of username. The body is cached per username;
// isFollowing depends on the viewer and is filled in afterwards.
func (s *ProfileService) PublicProfile(ctx context.Context, username string, viewerID uint) (*models.PublicProfile, error) {
	username = strings.TrimSpace(username)
	var (
		profile models.PublicProfile
		ownerID uint
	)
	err := cache.Aside(ctx, cache.ProfileKey(username), &profile, cache.ProfileTTL, func() error {
		built, id, err := s.buildPublicProfile(ctx, username)
		if err != nil {
			return err
		}
		profile, ownerID = *built, id
		return nil
	})
	if err != nil {
		return nil, err
	}

	profile.IsFollowing = false
	if viewerID != 0 {
		if ownerID == 0 {
			owner, err := s.userRepo.GetByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			ownerID = owner.ID
		}
		following, err := s.followRepo.IsFollowing(ctx, viewerID, ownerID)
		if err != nil {
			return nil, err
		}
		profile.IsFollowing = following
	}
	return &profile, nil
}

func (s *ProfileService) buildPublicProfile(ctx context.Context, username string) (*models.PublicProfile, uint, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}

	var (
		stats       models.ProfileStats
		submissions []*models.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Submissions, err = s.submissionRepo.CountByAuthor(gctx, user.ID, true)
		return err
	})
	g.Go(func() (err error) {
		stats.Comments, err = s.commentRepo.CountByAuthor(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		stats.Followers, stats.Following, err = s.followRepo.Counts(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		submissions, err = s.submissionRepo.ListByAuthor(gctx, user.ID, true, publicProfileSubmissions)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return &models.PublicProfile{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Bio:         user.Bio,
		AvatarURL:   user.AvatarURL,
		JoinedAt:    user.CreatedAt,
		Stats:       stats,
		Submissions: models.SubmissionsToResponse(submissions),
	}, user.ID, nil
}
