package server

import (
	"github.com/gofiber/fiber/v2"
)

// FollowRequest is the POST /api/follow payload.
type FollowRequest struct {
	Username string `json:"username"`
}

// GetPublicProfile handles GET /api/users/:username
// @Summary Public profile
// @Description Profile, stats and public submissions of a user. isFollowing reflects the caller when identified.
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.PublicProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username} [get]
func (s *Server) GetPublicProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.PublicProfile(c.UserContext(), c.Params("username"), s.viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// ToggleFollow handles POST /api/follow
// @Summary Follow or unfollow
// @Description Flip whether the caller follows username. Counts in the response are the target's.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FollowRequest true "Target"
// @Success 200 {object} models.FollowState
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /follow [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	var req FollowRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	state, err := s.followService.Toggle(c.UserContext(), localUser(c), req.Username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(state)
}
