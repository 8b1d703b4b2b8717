package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// ViewRepository records reads and the per-user tag preferences derived from them.
type ViewRepository interface {
	Record(ctx context.Context, view *models.View) error
	IncrementTagPref(ctx context.Context, userID uint, tag string) error
	TopTagPrefs(ctx context.Context, userID uint, limit int) ([]models.TagPref, error)
	RecentViewedIDs(ctx context.Context, userID uint, limit int) ([]uint, error)
}

type viewRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewViewRepository returns a new ViewRepository implementation.
func NewViewRepository(db *gorm.DB) ViewRepository {
	return &viewRepository{db: db, log: observability.NewRepoLogger("views")}
}

func (r *viewRepository) Record(ctx context.Context, view *models.View) error {
	if err := r.db.WithContext(ctx).Create(view).Error; err != nil {
		r.log.LogError(ctx, err, "record")
		return models.NewInternalError(err)
	}
	audience := "anonymous"
	if view.UserID != nil {
		audience = "user"
	}
	observability.ViewsRecorded.WithLabelValues(audience).Inc()
	return nil
}

// IncrementTagPref inserts the (user, tag) pair with weight 1 or bumps the existing weight by one.
func (r *viewRepository) IncrementTagPref(ctx context.Context, userID uint, tag string) error {
	pref := models.TagPref{UserID: userID, Tag: tag, Weight: 1}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "tag"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"weight":     gorm.Expr("tag_prefs.weight + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&pref).Error
	if err != nil {
		observability.TagPrefUpserts.WithLabelValues("error").Inc()
		r.log.LogError(ctx, err, "upsert_tag_pref")
		return models.NewInternalError(err)
	}
	observability.TagPrefUpserts.WithLabelValues("ok").Inc()
	return nil
}

// TopTagPrefs returns the user's heaviest tags, ties broken alphabetically.
func (r *viewRepository) TopTagPrefs(ctx context.Context, userID uint, limit int) ([]models.TagPref, error) {
	var prefs []models.TagPref
	err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("weight DESC").
		Order("tag ASC").
		Limit(limit).
		Find(&prefs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return prefs, nil
}

// RecentViewedIDs returns submission ids from the user's latest views, newest first.
// An id can repeat when the user read the same submission more than once.
func (r *viewRepository) RecentViewedIDs(ctx context.Context, userID uint, limit int) ([]uint, error) {
	var ids []uint
	err := readDB(r.db).WithContext(ctx).
		Model(&models.View{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Pluck("submission_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
