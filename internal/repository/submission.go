package repository

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// RecentPublicLimit is the size of the cached recent-public list.
const RecentPublicLimit = 10

// SubmissionRepository defines persistence operations for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (*models.Submission, error)
	ListPage(ctx context.Context, viewerID, cursor uint, limit int) ([]*models.Submission, error)
	RecentPublic(ctx context.Context) ([]*models.Submission, error)
	Recommend(ctx context.Context, tags, categories []string, excludeIDs []uint, limit int) ([]*models.Submission, error)
	CountByAuthor(ctx context.Context, authorID uint, publicOnly bool) (int64, error)
	ListByAuthor(ctx context.Context, authorID uint, publicOnly bool, limit int) ([]*models.Submission, error)
}

type submissionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewSubmissionRepository returns a new SubmissionRepository implementation.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db, log: observability.NewRepoLogger("submissions")}
}

// Create inserts the submission and its tag index rows in one transaction.
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author").Create(submission).Error; err != nil {
			return err
		}
		if len(submission.Tags) == 0 {
			return nil
		}
		rows := make([]models.SubmissionTag, 0, len(submission.Tags))
		for _, tag := range submission.Tags {
			rows = append(rows, models.SubmissionTag{SubmissionID: submission.ID, Tag: tag})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}

	observability.SubmissionsCreated.WithLabelValues(submission.Category).Inc()
	r.log.LogCreate(ctx, zap.Uint("submission_id", submission.ID), zap.Uint("author_id", submission.AuthorID))
	if submission.IsPublic() {
		cache.Invalidate(ctx, cache.RecentPublicKey)
	}
	return nil
}

// GetByID loads a submission with its author and comment count regardless of visibility.
func (r *submissionRepository) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	defer observability.TrackQuery("get", "submissions")()

	var submission models.Submission
	err := readDB(r.db).WithContext(ctx).
		Select(withCommentCount).
		Preload("Author").
		Where("submissions.id = ?", id).
		First(&submission).Error
	if err != nil {
		return nil, translate(err, "Submission not found")
	}
	return &submission, nil
}

// ListPage returns up to limit submissions visible to viewerID, newest first, strictly after cursor.
// A cursor that names no row yields an empty page.
func (r *submissionRepository) ListPage(ctx context.Context, viewerID, cursor uint, limit int) ([]*models.Submission, error) {
	defer observability.TrackQuery("list_page", "submissions")()

	q := readDB(r.db).WithContext(ctx).
		Select(withCommentCount).
		Preload("Author")
	if viewerID != 0 {
		q = q.Where("(submissions.visibility = ? OR submissions.author_id = ?)", models.VisibilityPublic, viewerID)
	} else {
		q = q.Where("submissions.visibility = ?", models.VisibilityPublic)
	}
	if cursor != 0 {
		q = q.Where(
			"(submissions.created_at, submissions.id) < (SELECT c.created_at, c.id FROM submissions c WHERE c.id = ?)",
			cursor,
		)
	}

	var submissions []*models.Submission
	err := q.Order("submissions.created_at DESC").
		Order("submissions.id DESC").
		Limit(limit).
		Find(&submissions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return submissions, nil
}

// RecentPublic returns the most recent public submissions, cached briefly.
func (r *submissionRepository) RecentPublic(ctx context.Context) ([]*models.Submission, error) {
	var ids []uint
	err := cache.Aside(ctx, cache.RecentPublicKey, &ids, cache.RecentPublicTTL, func() error {
		return readDB(r.db).WithContext(ctx).
			Model(&models.Submission{}).
			Where("visibility = ?", models.VisibilityPublic).
			Order("created_at DESC").
			Order("id DESC").
			Limit(RecentPublicLimit).
			Pluck("id", &ids).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.loadOrdered(ctx, ids)
}

// Recommend finds public submissions sharing any of tags or categories, newest first.
func (r *submissionRepository) Recommend(ctx context.Context, tags, categories []string, excludeIDs []uint, limit int) ([]*models.Submission, error) {
	if len(tags) == 0 && len(categories) == 0 {
		return []*models.Submission{}, nil
	}
	defer observability.TrackQuery("recommend", "submissions")()

	db := readDB(r.db).WithContext(ctx)
	var match *gorm.DB
	if len(tags) > 0 {
		tagged := db.Model(&models.SubmissionTag{}).Select("submission_id").Where("tag IN ?", tags)
		match = db.Where("submissions.id IN (?)", tagged)
		if len(categories) > 0 {
			match = match.Or("submissions.category IN ?", categories)
		}
	} else {
		match = db.Where("submissions.category IN ?", categories)
	}

	q := db.Select(withCommentCount).
		Preload("Author").
		Where("submissions.visibility = ?", models.VisibilityPublic).
		Where(match)
	if len(excludeIDs) > 0 {
		q = q.Where("submissions.id NOT IN ?", excludeIDs)
	}

	var submissions []*models.Submission
	err := q.Order("submissions.created_at DESC").
		Order("submissions.id DESC").
		Limit(limit).
		Find(&submissions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return submissions, nil
}

func (r *submissionRepository) CountByAuthor(ctx context.Context, authorID uint, publicOnly bool) (int64, error) {
	var count int64
	q := readDB(r.db).WithContext(ctx).Model(&models.Submission{}).Where("author_id = ?", authorID)
	if publicOnly {
		q = q.Where("visibility = ?", models.VisibilityPublic)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *submissionRepository) ListByAuthor(ctx context.Context, authorID uint, publicOnly bool, limit int) ([]*models.Submission, error) {
	q := readDB(r.db).WithContext(ctx).
		Select(withCommentCount).
		Preload("Author").
		Where("submissions.author_id = ?", authorID)
	if publicOnly {
		q = q.Where("submissions.visibility = ?", models.VisibilityPublic)
	}

	var submissions []*models.Submission
	err := q.Order("submissions.created_at DESC").
		Order("submissions.id DESC").
		Limit(limit).
		Find(&submissions).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return submissions, nil
}

// loadOrdered fetches ids and returns them in the order given, skipping rows that vanished.
func (r *submissionRepository) loadOrdered(ctx context.Context, ids []uint) ([]*models.Submission, error) {
	if len(ids) == 0 {
		return []*models.Submission{}, nil
	}

	var rows []*models.Submission
	err := readDB(r.db).WithContext(ctx).
		Select(withCommentCount).
		Preload("Author").
		Where("submissions.id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	byID := make(map[uint]*models.Submission, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]*models.Submission, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}
