package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
	"github.com/tsamuels456/unboundedfigures/internal/validation"
)

const (
	DefaultPageLimit = 20
	MinPageLimit     = 5
	MaxPageLimit     = 50
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	userRepo       repository.UserRepository
}

// CreateSubmissionInput is the POST /api/submissions payload.
type CreateSubmissionInput struct {
	Title         string   `json:"title" validate:"min=3,max=200"`
	Content       string   `json:"content" validate:"max=20000"`
	FileURL       string   `json:"fileUrl" validate:"omitempty,httpurl"`
	Tags          []string `json:"tags" validate:"max=12,dive,min=1,max=24"`
	AINote        string   `json:"aiNote" validate:"max=2000"`
	Category      string   `json:"category" validate:"oneof=unbounded-space library-of-figures project-lab"`
	Visibility    string   `json:"visibility" validate:"oneof=PUBLIC PRIVATE"`
	AllowComments *bool    `json:"allowComments"`
}

type ListSubmissionsInput struct {
	ViewerID uint
	Limit    int
	Cursor   uint
}

func NewSubmissionService(submissionRepo repository.SubmissionRepository, userRepo repository.UserRepository) *SubmissionService {
	return &SubmissionService{submissionRepo: submissionRepo, userRepo: userRepo}
}

// ParsePageLimit reads the ?limit= value, defaulting on junk and clamping to the allowed range.
func ParsePageLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultPageLimit
	}
	return ClampPageLimit(n)
}

func ClampPageLimit(n int) int {
	if n < MinPageLimit {
		return MinPageLimit
	}
	if n > MaxPageLimit {
		return MaxPageLimit
	}
	return n
}

// normalize trims fields and applies defaults ahead of validation.
func (in *CreateSubmissionInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.FileURL = strings.TrimSpace(in.FileURL)
	for i, tag := range in.Tags {
		in.Tags[i] = strings.TrimSpace(tag)
	}
	if in.Category == "" {
		in.Category = models.CategoryUnboundedSpace
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPublic
	}
}

// DedupeTags keeps the first occurrence of each tag.
func DedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func (s *SubmissionService) CreateSubmission(ctx context.Context, author *models.User, in CreateSubmissionInput) (_ *models.Submission, err error) {
	ctx, span := observability.StartSpan(ctx, "service.CreateSubmission", observability.AttrFigureID.Int64(int64(author.ID)))
	defer func() { span.End(err) }()

	in.normalize()
	if err = validation.Struct(in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Content) == "" && in.FileURL == "" {
		return nil, models.NewValidationError("Provide either content or fileUrl.")
	}

	allowComments := true
	if in.AllowComments != nil {
		allowComments = *in.AllowComments
	}

	submission := &models.Submission{
		Title:         in.Title,
		Content:       optionalString(in.Content),
		FileURL:       optionalString(in.FileURL),
		Tags:          DedupeTags(in.Tags),
		AINote:        optionalString(in.AINote),
		Category:      in.Category,
		Visibility:    in.Visibility,
		AllowComments: allowComments,
		Upvotes:       0,
		AuthorID:      author.ID,
	}
	if err = s.submissionRepo.Create(ctx, submission); err != nil {
		return nil, err
	}
	submission.Author = author
	span.Annotate(observability.AttrSubmissionID.Int64(int64(submission.ID)))
	cache.InvalidateProfile(ctx, author.Username)
	return submission, nil
}

// ListSubmissions returns one keyset page. One extra row is fetched to decide whether a next page exists.
func (s *SubmissionService) ListSubmissions(ctx context.Context, in ListSubmissionsInput) (*models.SubmissionPage, error) {
	limit := ClampPageLimit(in.Limit)
	rows, err := s.submissionRepo.ListPage(ctx, in.ViewerID, in.Cursor, limit+1)
	if err != nil {
		return nil, err
	}

	page := &models.SubmissionPage{}
	if len(rows) > limit {
		rows = rows[:limit]
		next := rows[len(rows)-1].ID
		page.NextCursor = &next
	}
	page.Items = models.SubmissionsToResponse(rows)
	return page, nil
}

// GetSubmission returns the submission if viewerID may see it. Public rows are served from cache.
func (s *SubmissionService) GetSubmission(ctx context.Context, id, viewerID uint) (*models.SubmissionResponse, error) {
	var resp models.SubmissionResponse
	var authorID uint
	loaded := false
	err := cache.AsideWhen(ctx, cache.SubmissionKey(id), &resp, cache.SubmissionTTL, func() error {
		submission, err := s.submissionRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		resp = submission.ToResponse()
		authorID = submission.AuthorID
		loaded = true
		return nil
	}, func() bool {
		return resp.Visibility == models.VisibilityPublic
	})
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundMessage("Not found")
		}
		return nil, err
	}

	if !loaded {
		authorID = resp.Author.ID
	}
	if resp.Visibility != models.VisibilityPublic && (viewerID == 0 || viewerID != authorID) {
		return nil, models.NewNotFoundMessage("Not found")
	}
	if !loaded {
		// The cached author may predate a rename; user rows are invalidated on update.
		author, err := s.userRepo.GetByID(ctx, authorID)
		if err != nil {
			if isNotFound(err) {
				return nil, models.NewNotFoundMessage("Not found")
			}
			return nil, err
		}
		resp.Author = author.Summary()
	}
	return &resp, nil
}

// visibleSubmission loads a submission and hides it from viewers who may not see it.
func visibleSubmission(ctx context.Context, repo repository.SubmissionRepository, id, viewerID uint) (*models.Submission, error) {
	submission, err := repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundMessage("Submission not found")
		}
		return nil, err
	}
	if !submission.VisibleTo(viewerID) {
		return nil, models.NewNotFoundMessage("Submission not found")
	}
	return submission, nil
}
