package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// FollowRepository manages directed follow edges between users.
type FollowRepository interface {
	Toggle(ctx context.Context, followerID, followingID uint) (*models.FollowState, error)
	Counts(ctx context.Context, userID uint) (followers, following int64, err error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
}

type followRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, log: observability.NewRepoLogger("follows")}
}

// Toggle creates the edge when absent and removes it when present, then reports the
// target's counts as seen inside the same transaction.
func (r *followRepository) Toggle(ctx context.Context, followerID, followingID uint) (*models.FollowState, error) {
	state := &models.FollowState{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edge models.Follow
		res := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Limit(1).Find(&edge)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			if err := tx.Delete(&models.Follow{}, edge.ID).Error; err != nil {
				return err
			}
			r.log.LogDelete(ctx, zap.Uint("follower_id", followerID), zap.Uint("following_id", followingID))
		} else {
			if err := tx.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error; err != nil {
				return err
			}
			state.IsFollowing = true
			r.log.LogCreate(ctx, zap.Uint("follower_id", followerID), zap.Uint("following_id", followingID))
		}

		if err := tx.Model(&models.Follow{}).Where("following_id = ?", followingID).Count(&state.Followers).Error; err != nil {
			return err
		}
		return tx.Model(&models.Follow{}).Where("follower_id = ?", followingID).Count(&state.Following).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.NewConflictError("Follow state changed concurrently, retry")
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		r.log.LogError(ctx, err, "toggle")
		return nil, models.NewInternalError(err)
	}

	if state.IsFollowing {
		observability.FollowToggles.WithLabelValues("followed").Inc()
	} else {
		observability.FollowToggles.WithLabelValues("unfollowed").Inc()
	}
	return state, nil
}

func (r *followRepository) Counts(ctx context.Context, userID uint) (followers, following int64, err error) {
	db := readDB(r.db).WithContext(ctx)
	if err = db.Model(&models.Follow{}).Where("following_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	if err = db.Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&following).Error; err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	return followers, following, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	if followerID == 0 || followerID == followingID {
		return false, nil
	}
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
