package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/service"
)

// RecordViewRequest is the POST /api/views payload.
type RecordViewRequest struct {
	SubmissionID uint `json:"submissionId"`
}

// RecommendationsResponse is returned by GET /api/recs.
type RecommendationsResponse struct {
	Items []models.SubmissionResponse `json:"items"`
}

// RecordView handles POST /api/views
// @Summary Record a view
// @Description Identified readers also accumulate tag preferences used by the feed.
// @Tags feed
// @Accept json
// @Param request body RecordViewRequest true "Viewed submission"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /views [post]
func (s *Server) RecordView(c *fiber.Ctx) error {
	var req RecordViewRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	err := s.viewService.RecordView(c.UserContext(), service.RecordViewInput{
		SubmissionID: req.SubmissionID,
		ViewerID:     s.viewerID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetRecommendations handles GET /api/recs
// @Summary Recommended submissions
// @Description Personalized from viewing history unless opted out through ?off=1, DNT or Sec-GPC.
// @Tags feed
// @Produce json
// @Param off query string false "Set to 1 to disable personalization"
// @Success 200 {object} RecommendationsResponse
// @Router /recs [get]
func (s *Server) GetRecommendations(c *fiber.Ctx) error {
	optOut := service.RecsOptOut(c.Query("off"), c.Get("DNT"), c.Get("Sec-GPC"))

	var userID uint
	if !optOut {
		userID = s.viewerID(c)
	}

	items, err := s.recommendationService.Recommend(c.UserContext(), service.RecommendationInput{
		UserID: userID,
		OptOut: optOut,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(RecommendationsResponse{Items: models.SubmissionsToResponse(items)})
}
