package repository

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListBySubmission(ctx context.Context, submissionID uint) ([]*models.Comment, error)
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
	RecentByAuthor(ctx context.Context, authorID uint, limit int) ([]models.CommentActivity, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, zap.Uint("comment_id", comment.ID), zap.Uint("submission_id", comment.SubmissionID))
	return nil
}

// ListBySubmission returns the thread oldest first.
func (r *commentRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Comment{}).
		Where("author_id = ?", authorID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// RecentByAuthor returns the author's newest comments with the title of the submission each belongs to.
func (r *commentRepository) RecentByAuthor(ctx context.Context, authorID uint, limit int) ([]models.CommentActivity, error) {
	var rows []models.CommentActivity
	err := readDB(r.db).WithContext(ctx).
		Table("comments").
		Select("comments.id, comments.content, comments.created_at, comments.submission_id, submissions.title AS submission_title").
		Joins("JOIN submissions ON submissions.id = comments.submission_id").
		Where("comments.author_id = ?", authorID).
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
