package service

import (
	"context"
	"strings"

	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/notifications"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	publisher  EventPublisher
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		publisher:  publisher,
	}
}

// Toggle flips whether actor follows the user named username.
func (s *FollowService) Toggle(ctx context.Context, actor *models.User, username string) (_ *models.FollowState, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("username required")
	}
	ctx, span := observability.StartSpan(ctx, "service.ToggleFollow", observability.AttrFigureID.Int64(int64(actor.ID)))
	defer func() { span.End(err) }()

	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.ID {
		return nil, models.NewValidationError("You cannot follow yourself.")
	}

	state, err := s.followRepo.Toggle(ctx, actor.ID, target.ID)
	if err != nil {
		return nil, err
	}

	cache.InvalidateProfile(ctx, actor.Username, target.Username)
	if state.IsFollowing {
		notify(ctx, s.publisher, target.ID, notifications.Event{
			Type:    notifications.EventFollow,
			Payload: notifications.FollowPayload{FollowerID: actor.ID, Username: actor.Username},
		})
	}
	return state, nil
}
