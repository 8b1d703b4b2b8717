package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
)

// Factory builds domain entities and persists them through the repositories,
// so seeded rows get the same tag index rows and counters as API writes.
type Factory struct {
	faker       *gofakeit.Faker
	maxDays     int
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	comments    repository.CommentRepository
	now         func() time.Time
}

// NewFactory creates a Factory bound to db. A zero seed picks a random one.
func NewFactory(db *gorm.DB, seed int64, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		faker:       gofakeit.New(seed),
		maxDays:     maxDays,
		users:       repository.NewUserRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		comments:    repository.NewCommentRepository(db),
		now:         time.Now,
	}
}

// pastTime is a realistic created_at within the configured window.
func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return f.now().Add(-back).Truncate(time.Second)
}

// BuildUser returns an unsaved figure with fake profile fields.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	name := f.faker.Name()
	user := &models.User{
		Username:    fmt.Sprintf("%s_%d", strings.ToLower(f.faker.FirstName()), f.faker.Number(100, 99999)),
		DisplayName: name,
		Bio:         f.faker.Sentence(10),
		AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		Role:        models.RoleFigure,
		CreatedAt:   f.pastTime(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser persists a figure built by BuildUser.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildSubmission returns an unsaved submission drawing tags from vocabulary.
func (f *Factory) BuildSubmission(author *models.User, vocabulary []string, overrides ...func(*models.Submission)) *models.Submission {
	content := f.faker.Paragraph(2, 4, 12, "\n\n")
	submission := &models.Submission{
		Title:         strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), "."),
		Content:       &content,
		Tags:          f.pickTags(vocabulary, f.faker.Number(1, 3)),
		Category:      f.faker.RandomString(models.Categories),
		Visibility:    models.VisibilityPublic,
		AllowComments: f.faker.Number(1, 10) > 1,
		AuthorID:      author.ID,
		CreatedAt:     f.pastTime(),
	}
	// About one in eight drafts stays private.
	if f.faker.Number(1, 8) == 1 {
		submission.Visibility = models.VisibilityPrivate
	}
	if f.faker.Number(1, 4) == 1 {
		url := f.faker.URL()
		submission.FileURL = &url
	}
	for _, override := range overrides {
		override(submission)
	}
	return submission
}

// CreateSubmission persists a submission built by BuildSubmission.
func (f *Factory) CreateSubmission(ctx context.Context, author *models.User, vocabulary []string, overrides ...func(*models.Submission)) (*models.Submission, error) {
	submission := f.BuildSubmission(author, vocabulary, overrides...)
	if err := f.submissions.Create(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

// CreateComment persists a comment by author on submission, dated after the submission.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, submission *models.Submission) (*models.Comment, error) {
	createdAt := submission.CreatedAt.Add(time.Duration(f.faker.Number(1, 72*60)) * time.Minute)
	if now := f.now(); createdAt.After(now) {
		createdAt = now
	}
	comment := &models.Comment{
		Content:      f.faker.Sentence(f.faker.Number(6, 20)),
		AuthorID:     author.ID,
		SubmissionID: submission.ID,
		CreatedAt:    createdAt,
	}
	if err := f.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (f *Factory) pickTags(vocabulary []string, n int) []string {
	if len(vocabulary) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, n)
	tags := make([]string, 0, n)
	for i := 0; i < n*3 && len(tags) < n; i++ {
		tag := f.faker.RandomString(vocabulary)
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
