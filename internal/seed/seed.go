// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
	"github.com/tsamuels456/unboundedfigures/internal/service"
)

//go:embed fixtures.yml
var fixturesYAML []byte

// Fixtures is the hand-written part of the dev dataset.
type Fixtures struct {
	Founder     FounderFixture      `yaml:"founder"`
	Tags        []string            `yaml:"tags"`
	Submissions []SubmissionFixture `yaml:"submissions"`
}

type FounderFixture struct {
	Username    string `yaml:"username"`
	DisplayName string `yaml:"displayName"`
	Bio         string `yaml:"bio"`
}

// SubmissionFixture is authored by the founder.
type SubmissionFixture struct {
	Title      string   `yaml:"title"`
	Category   string   `yaml:"category"`
	Tags       []string `yaml:"tags"`
	Content    string   `yaml:"content"`
	AINote     string   `yaml:"aiNote"`
	Visibility string   `yaml:"visibility"`
}

// LoadFixtures parses the embedded fixtures.
func LoadFixtures() (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(fixturesYAML, &fx); err != nil {
		return nil, fmt.Errorf("parse seed fixtures: %w", err)
	}
	if fx.Founder.Username == "" {
		return nil, errors.New("seed fixtures: founder username is required")
	}
	return &fx, nil
}

// Options configuration for the seeder
type Options struct {
	NumFigures     int
	NumSubmissions int
	// CommentsPerSubmission and ViewsPerFigure are upper bounds; actual counts are random.
	CommentsPerSubmission int
	ViewsPerFigure        int
	MaxDays               int
	// FounderAuthID links the founder to an identity subject, typically DEV_SEED_AUTH_ID.
	FounderAuthID string
	// Seed makes fake data reproducible; zero is random.
	Seed int64
}

// Summary counts what a run created.
type Summary struct {
	Figures     int
	Submissions int
	Comments    int
	Follows     int
	Views       int
}

// Seeder orchestrates a full dev dataset.
type Seeder struct {
	db       *gorm.DB
	opts     Options
	factory  *Factory
	fixtures *Fixtures
	users    repository.UserRepository
	follows  repository.FollowRepository
	views    *service.ViewService
	log      *zap.Logger
}

// NewSeeder loads the fixtures and wires the factory to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	fx, err := LoadFixtures()
	if err != nil {
		return nil, err
	}
	submissionRepo := repository.NewSubmissionRepository(db)
	return &Seeder{
		db:       db,
		opts:     opts,
		factory:  NewFactory(db, opts.Seed, opts.MaxDays),
		fixtures: fx,
		users:    repository.NewUserRepository(db),
		follows:  repository.NewFollowRepository(db),
		views:    service.NewViewService(repository.NewViewRepository(db), submissionRepo),
		log:      observability.L().Named("seed"),
	}, nil
}

// ClearAll deletes every application row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{
		&models.TagPref{},
		&models.View{},
		&models.Follow{},
		&models.Comment{},
		&models.SubmissionTag{},
		&models.Submission{},
		&models.User{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	s.log.Info("cleared existing data")
	return nil
}

// Founder creates the founder figure once and links FounderAuthID to it when unset.
func (s *Seeder) Founder(ctx context.Context) (*models.User, error) {
	f := s.fixtures.Founder
	founder, err := s.users.GetByUsername(ctx, f.Username)
	if err != nil && !hasCode(err, models.CodeNotFound) {
		return nil, err
	}

	if founder == nil {
		founder = &models.User{
			Username:    f.Username,
			DisplayName: f.DisplayName,
			Bio:         f.Bio,
			Role:        models.RoleFigure,
		}
		if s.opts.FounderAuthID != "" {
			authID := s.opts.FounderAuthID
			founder.AuthID = &authID
		}
		if err := s.users.Create(ctx, founder); err != nil {
			return nil, err
		}
		s.log.Info("founder created", zap.Uint("user_id", founder.ID), zap.String("username", founder.Username))
		return founder, nil
	}

	if s.opts.FounderAuthID != "" && founder.AuthID == nil {
		if err := s.db.WithContext(ctx).Model(founder).Update("auth_id", s.opts.FounderAuthID).Error; err != nil {
			return nil, fmt.Errorf("link founder identity: %w", err)
		}
		authID := s.opts.FounderAuthID
		founder.AuthID = &authID
	}
	s.log.Info("founder exists", zap.Uint("user_id", founder.ID))
	return founder, nil
}

// FounderSubmissions writes the fixture submissions for founder.
func (s *Seeder) FounderSubmissions(ctx context.Context, founder *models.User) ([]*models.Submission, error) {
	out := make([]*models.Submission, 0, len(s.fixtures.Submissions))
	for _, fx := range s.fixtures.Submissions {
		submission, err := s.factory.CreateSubmission(ctx, founder, nil, func(sub *models.Submission) {
			content := fx.Content
			sub.Title = fx.Title
			sub.Content = &content
			sub.Tags = service.DedupeTags(fx.Tags)
			sub.Category = fx.Category
			sub.AllowComments = true
			sub.FileURL = nil
			sub.Visibility = models.VisibilityPublic
			if fx.Visibility != "" {
				sub.Visibility = fx.Visibility
			}
			sub.AINote = nil
			if fx.AINote != "" {
				note := fx.AINote
				sub.AINote = &note
			}
		})
		if err != nil {
			return nil, fmt.Errorf("fixture %q: %w", fx.Title, err)
		}
		out = append(out, submission)
	}
	return out, nil
}

// Figures creates n fake figures, retrying the occasional username collision.
func (s *Seeder) Figures(ctx context.Context, n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for len(users) < n {
		var (
			user *models.User
			err  error
		)
		for attempt := 0; attempt < 3; attempt++ {
			user, err = s.factory.CreateUser(ctx)
			if err == nil || !hasCode(err, models.CodeConflict) {
				break
			}
		}
		if err != nil {
			return nil, fmt.Errorf("create figure: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

// Submissions spreads n fake submissions across authors.
func (s *Seeder) Submissions(ctx context.Context, authors []*models.User, n int) ([]*models.Submission, error) {
	if len(authors) == 0 {
		return nil, nil
	}
	out := make([]*models.Submission, 0, n)
	for i := 0; i < n; i++ {
		author := authors[s.factory.faker.Number(0, len(authors)-1)]
		submission, err := s.factory.CreateSubmission(ctx, author, s.fixtures.Tags)
		if err != nil {
			return nil, fmt.Errorf("create submission: %w", err)
		}
		out = append(out, submission)
	}
	return out, nil
}

// Engagement adds comments, follows and views. Views go through the view service
// so tag preferences accumulate exactly as they do for real readers.
func (s *Seeder) Engagement(ctx context.Context, users []*models.User, submissions []*models.Submission) (*Summary, error) {
	sum := &Summary{}
	if len(users) == 0 || len(submissions) == 0 {
		return sum, nil
	}
	faker := s.factory.faker
	pick := func() *models.User { return users[faker.Number(0, len(users)-1)] }

	for _, submission := range submissions {
		if !submission.AllowComments || !submission.IsPublic() {
			continue
		}
		for i := faker.Number(0, s.opts.CommentsPerSubmission); i > 0; i-- {
			if _, err := s.factory.CreateComment(ctx, pick(), submission); err != nil {
				return nil, err
			}
			sum.Comments++
		}
	}

	if len(users) > 1 {
		for _, follower := range users {
			target := pick()
			if target.ID == follower.ID {
				continue
			}
			following, err := s.follows.IsFollowing(ctx, follower.ID, target.ID)
			if err != nil {
				return nil, err
			}
			if following {
				continue
			}
			if _, err := s.follows.Toggle(ctx, follower.ID, target.ID); err != nil {
				return nil, err
			}
			sum.Follows++
		}
	}

	for _, viewer := range users {
		for i := faker.Number(0, s.opts.ViewsPerFigure); i > 0; i-- {
			submission := submissions[faker.Number(0, len(submissions)-1)]
			if !submission.VisibleTo(viewer.ID) {
				continue
			}
			err := s.views.RecordView(ctx, service.RecordViewInput{SubmissionID: submission.ID, ViewerID: viewer.ID})
			if err != nil {
				return nil, err
			}
			sum.Views++
		}
	}
	return sum, nil
}

// Run seeds the founder, its fixtures, fake figures and their activity.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	founder, err := s.Founder(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed founder: %w", err)
	}
	fixtures, err := s.FounderSubmissions(ctx, founder)
	if err != nil {
		return nil, err
	}

	figures, err := s.Figures(ctx, s.opts.NumFigures)
	if err != nil {
		return nil, err
	}
	everyone := append([]*models.User{founder}, figures...)

	submissions, err := s.Submissions(ctx, everyone, s.opts.NumSubmissions)
	if err != nil {
		return nil, err
	}
	submissions = append(fixtures, submissions...)

	sum, err := s.Engagement(ctx, everyone, submissions)
	if err != nil {
		return nil, fmt.Errorf("seed engagement: %w", err)
	}
	sum.Figures = len(figures)
	sum.Submissions = len(submissions)

	s.log.Info("seeding completed",
		zap.Int("figures", sum.Figures),
		zap.Int("submissions", sum.Submissions),
		zap.Int("comments", sum.Comments),
		zap.Int("follows", sum.Follows),
		zap.Int("views", sum.Views),
	)
	return sum, nil
}

func hasCode(err error, code string) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
