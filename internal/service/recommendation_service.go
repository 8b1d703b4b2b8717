package service

import (
	"context"
	"strings"

	"github.com/tsamuels456/unboundedfigures/internal/featureflags"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
	"github.com/tsamuels456/unboundedfigures/internal/repository"
)

const (
	recsLimit        = 10
	recsTopTags      = 5
	recsRecentViews  = 100
	recsSourceRecent = "recent"
	recsSourceTagged = "personalized"
)

type RecommendationService struct {
	submissionRepo repository.SubmissionRepository
	viewRepo       repository.ViewRepository
	flags          *featureflags.Manager
}

type RecommendationInput struct {
	// UserID is 0 for anonymous readers.
	UserID uint
	// OptOut is set by ?off=1, DNT or Sec-GPC.
	OptOut bool
}

func NewRecommendationService(
	submissionRepo repository.SubmissionRepository,
	viewRepo repository.ViewRepository,
	flags *featureflags.Manager,
) *RecommendationService {
	return &RecommendationService{
		submissionRepo: submissionRepo,
		viewRepo:       viewRepo,
		flags:          flags,
	}
}

// Recommend builds the feed from the user's heaviest tags, falling back to recent public work.
func (s *RecommendationService) Recommend(ctx context.Context, in RecommendationInput) (_ []*models.Submission, err error) {
	ctx, span := observability.StartSpan(ctx, "service.Recommend", observability.AttrFigureID.Int64(int64(in.UserID)))
	defer func() { span.End(err) }()

	if !s.personalized(in) {
		span.Annotate(observability.AttrRecsMode.String(recsSourceRecent))
		return s.recent(ctx)
	}

	prefs, err := s.viewRepo.TopTagPrefs(ctx, in.UserID, recsTopTags)
	if err != nil {
		return nil, err
	}
	tags, categories := splitPreferenceTags(prefs)
	if len(tags) == 0 && len(categories) == 0 {
		return s.recent(ctx)
	}

	seen, err := s.viewRepo.RecentViewedIDs(ctx, in.UserID, recsRecentViews)
	if err != nil {
		return nil, err
	}

	items, err := s.submissionRepo.Recommend(ctx, tags, categories, seen, recsLimit)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return s.recent(ctx)
	}
	span.Annotate(observability.AttrRecsMode.String(recsSourceTagged))
	observability.RecommendationsServed.WithLabelValues(recsSourceTagged).Inc()
	return items, nil
}

func (s *RecommendationService) personalized(in RecommendationInput) bool {
	if in.UserID == 0 || in.OptOut {
		return false
	}
	if s.flags == nil {
		return true
	}
	return s.flags.Enabled(featureflags.PersonalizedRecs, in.UserID)
}

func (s *RecommendationService) recent(ctx context.Context) ([]*models.Submission, error) {
	items, err := s.submissionRepo.RecentPublic(ctx)
	if err != nil {
		return nil, err
	}
	observability.RecommendationsServed.WithLabelValues(recsSourceRecent).Inc()
	return items, nil
}

// splitPreferenceTags separates plain tags from "cat:" category preferences.
func splitPreferenceTags(prefs []models.TagPref) (tags, categories []string) {
	for _, p := range prefs {
		if category, ok := strings.CutPrefix(p.Tag, models.CategoryTagPrefix); ok {
			if category != "" {
				categories = append(categories, category)
			}
			continue
		}
		tags = append(tags, p.Tag)
	}
	return tags, categories
}

// RecsOptOut reports whether the request asked not to be personalized.
func RecsOptOut(offParam, dnt, gpc string) bool {
	return strings.TrimSpace(offParam) == "1" || strings.TrimSpace(dnt) == "1" || strings.TrimSpace(gpc) == "1"
}
