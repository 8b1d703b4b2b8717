package service

import (
	"context"

	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/notifications"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
	"github.com/tsamuels456/unboundedfigures/internal/validation"
)

const maxCommentLen = 5000

type CommentService struct {
	commentRepo    repository.CommentRepository
	submissionRepo repository.SubmissionRepository
	publisher      EventPublisher
}

type CreateCommentInput struct {
	Author       *models.User
	SubmissionID uint
	Content      string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	submissionRepo repository.SubmissionRepository,
	publisher EventPublisher,
) *CommentService {
	return &CommentService{
		commentRepo:    commentRepo,
		submissionRepo: submissionRepo,
		publisher:      publisher,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (_ *models.Comment, err error) {
	content := validation.Truncate(validation.PlainText(in.Content), maxCommentLen)
	if content == "" || in.SubmissionID == 0 {
		return nil, models.NewValidationError("Missing content or submissionId")
	}
	ctx, span := observability.StartSpan(ctx, "service.CreateComment",
		observability.AttrSubmissionID.Int64(int64(in.SubmissionID)),
		observability.AttrFigureID.Int64(int64(in.Author.ID)),
	)
	defer func() { span.End(err) }()

	submission, err := visibleSubmission(ctx, s.submissionRepo, in.SubmissionID, in.Author.ID)
	if err != nil {
		return nil, err
	}
	if !submission.AllowComments {
		return nil, models.NewForbiddenError("Comments are disabled for this submission")
	}

	comment := &models.Comment{
		Content:      content,
		AuthorID:     in.Author.ID,
		SubmissionID: submission.ID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = in.Author

	// The cached detail carries commentCount.
	cache.InvalidateSubmission(ctx, submission.ID)

	if submission.AuthorID != in.Author.ID {
		notify(ctx, s.publisher, submission.AuthorID, notifications.Event{
			Type: notifications.EventCommentCreated,
			Payload: notifications.CommentCreatedPayload{
				SubmissionID: submission.ID,
				CommentID:    comment.ID,
				Username:     in.Author.Username,
			},
		})
	}
	return comment, nil
}

// ListComments returns the thread of a submission the viewer may see.
func (s *CommentService) ListComments(ctx context.Context, submissionID, viewerID uint) ([]*models.Comment, error) {
	if _, err := visibleSubmission(ctx, s.submissionRepo, submissionID, viewerID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListBySubmission(ctx, submissionID)
}
