package server

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/service"
)

// ListSubmissions handles GET /api/submissions
// @Summary List submissions
// @Description Keyset page of public submissions, newest first, plus the caller's own private ones.
// @Tags submissions
// @Produce json
// @Param limit query int false "Page size (5-50, default 20)"
// @Param cursor query int false "Id of the last submission already seen"
// @Success 200 {object} models.SubmissionPage
// @Router /submissions [get]
func (s *Server) ListSubmissions(c *fiber.Ctx) error {
	var cursor uint
	if raw := c.Query("cursor"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			return c.JSON(models.SubmissionPage{Items: []models.SubmissionResponse{}})
		}
		cursor = uint(n)
	}

	page, err := s.submissionService.ListSubmissions(c.UserContext(), service.ListSubmissionsInput{
		ViewerID: s.viewerID(c),
		Limit:    service.ParsePageLimit(c.Query("limit")),
		Cursor:   cursor,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// CreateSubmission handles POST /api/submissions
// @Summary Create submission
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateSubmissionInput true "Submission"
// @Success 201 {object} models.SubmissionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /submissions [post]
func (s *Server) CreateSubmission(c *fiber.Ctx) error {
	var req service.CreateSubmissionInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	submission, err := s.submissionService.CreateSubmission(c.UserContext(), localUser(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(submission.ToResponse())
}

// GetSubmission handles GET /api/submissions/:id
// @Summary Get submission
// @Tags submissions
// @Produce json
// @Param id path int true "Submission ID"
// @Success 200 {object} models.SubmissionResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /submissions/{id} [get]
func (s *Server) GetSubmission(c *fiber.Ctx) error {
	id, ok := pathID(c, "id")
	if !ok {
		return nil
	}

	submission, err := s.submissionService.GetSubmission(c.UserContext(), id, s.viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(submission)
}
