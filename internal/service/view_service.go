package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
)

type ViewService struct {
	viewRepo       repository.ViewRepository
	submissionRepo repository.SubmissionRepository
}

type RecordViewInput struct {
	SubmissionID uint
	// ViewerID is 0 for anonymous readers.
	ViewerID uint
}

func NewViewService(viewRepo repository.ViewRepository, submissionRepo repository.SubmissionRepository) *ViewService {
	return &ViewService{viewRepo: viewRepo, submissionRepo: submissionRepo}
}

// RecordView appends a view and, for a known reader, bumps the weight of every tag on the submission
// plus its category. The view row stays committed even when a weight update fails.
func (s *ViewService) RecordView(ctx context.Context, in RecordViewInput) (err error) {
	if in.SubmissionID == 0 {
		return models.NewValidationError("submissionId required")
	}
	ctx, span := observability.StartSpan(ctx, "service.RecordView",
		observability.AttrSubmissionID.Int64(int64(in.SubmissionID)),
		observability.AttrFigureID.Int64(int64(in.ViewerID)),
	)
	defer func() { span.End(err) }()

	submission, err := visibleSubmission(ctx, s.submissionRepo, in.SubmissionID, in.ViewerID)
	if err != nil {
		return err
	}

	view := &models.View{SubmissionID: submission.ID}
	if in.ViewerID != 0 {
		uid := in.ViewerID
		view.UserID = &uid
	}
	if err := s.viewRepo.Record(ctx, view); err != nil {
		return err
	}
	if in.ViewerID == 0 {
		return nil
	}

	// No shared context cancellation: one failed tag must not abort the others.
	var g errgroup.Group
	for _, tag := range PreferenceTags(submission) {
		g.Go(func() error {
			return s.viewRepo.IncrementTagPref(ctx, in.ViewerID, tag)
		})
	}
	return g.Wait()
}

// PreferenceTags is the submission's tags plus its category tag, without duplicates.
func PreferenceTags(submission *models.Submission) []string {
	tags := make([]string, 0, len(submission.Tags)+1)
	tags = append(tags, submission.Tags...)
	if submission.Category != "" {
		tags = append(tags, models.CategoryTagPrefix+submission.Category)
	}
	return DedupeTags(tags)
}
