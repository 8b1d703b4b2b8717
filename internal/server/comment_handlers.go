package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/service"
)

// CreateCommentRequest is the POST /api/comments payload.
type CreateCommentRequest struct {
	Content      string `json:"content"`
	SubmissionID uint   `json:"submissionId"`
}

// CreateComment handles POST /api/comments
// @Summary Comment on a submission
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCommentRequest true "Comment"
// @Success 201 {object} models.CommentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		Author:       localUser(c),
		SubmissionID: req.SubmissionID,
		Content:      req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment.ToResponse())
}

// ListComments handles GET /api/comments/:submissionId
// @Summary List comments
// @Tags comments
// @Produce json
// @Param submissionId path int true "Submission ID"
// @Success 200 {array} models.CommentResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{submissionId} [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	submissionID, ok := pathID(c, "submissionId")
	if !ok {
		return nil
	}

	comments, err := s.commentService.ListComments(c.UserContext(), submissionID, s.viewerID(c))
	if err != nil {
		return respondError(c, err)
	}

	out := make([]models.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, comment.ToResponse())
	}
	return c.JSON(out)
}
