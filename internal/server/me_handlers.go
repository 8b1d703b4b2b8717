package server

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/tsamuels456/unboundedfigures/internal/middleware"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/service"
)

// UpdateMeResponse is returned by PATCH /api/me.
type UpdateMeResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// EnsureMe handles POST /api/me/ensure
// @Summary Ensure local user
// @Description Create the local user for the verified identity, or return the existing one.
// @Tags me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Success 201 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /me/ensure [post]
func (s *Server) EnsureMe(c *fiber.Ctx) error {
	identity, _ := middleware.IdentityFrom(c)

	user, created, err := s.identityService.EnsureLocalUser(c.UserContext(), service.EnsureLocalUserInput{
		Subject: identity.Subject,
		Email:   identity.Email,
	})
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(user)
}

// GetMe handles GET /api/me
// @Summary Current user
// @Tags me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.MeResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	me, err := s.profileService.Me(c.UserContext(), localUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(me)
}

// UpdateMe handles PATCH /api/me
// @Summary Update profile
// @Description Change username, display name, bio or avatar url. Omitted fields are left alone.
// @Tags me
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.UpdateProfileInput true "Profile changes"
// @Success 200 {object} UpdateMeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /me [patch]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := s.profileService.UpdateMe(c.UserContext(), localUser(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(UpdateMeResponse{Success: true, User: user})
}

// CheckUsername handles GET /api/profile/check-username
// @Summary Check username availability
// @Tags me
// @Produce json
// @Param username query string true "Candidate username"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} models.ErrorResponse
// @Router /profile/check-username [get]
func (s *Server) CheckUsername(c *fiber.Ctx) error {
	username := c.Query("username")
	if username == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Missing username"))
	}

	available, err := s.profileService.UsernameAvailable(c.UserContext(), username, s.viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"available": available})
}

// UploadAvatar handles POST /api/profile/avatar
// @Summary Upload avatar
// @Description Square-crop, resize and store an avatar image. The returned url is applied through PATCH /api/me.
// @Tags me
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "jpeg, png, gif or webp image"
// @Success 200 {object} map[string]string
// @Failure 400 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Router /profile/avatar [post]
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	file, err := c.FormFile("avatar")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	if file.Size > s.avatarService.MaxBytes() {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge, service.ErrAvatarTooLarge)
	}

	f, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	defer func() { _ = f.Close() }()

	// One byte past the cap is enough to tell an oversized body apart.
	content, err := io.ReadAll(io.LimitReader(f, s.avatarService.MaxBytes()+1))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid image file"))
	}

	url, err := s.avatarService.Upload(c.UserContext(), service.UploadAvatarInput{
		UserID:      localUser(c).ID,
		Content:     content,
		ContentType: file.Header.Get(fiber.HeaderContentType),
	})
	if errors.Is(err, service.ErrAvatarTooLarge) {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge, err)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

// GetDashboard handles GET /api/dashboard
// @Summary Dashboard
// @Description Stats, merged recent activity and the latest five submissions of the caller.
// @Tags me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Dashboard
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /dashboard [get]
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	dashboard, err := s.profileService.Dashboard(c.UserContext(), localUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dashboard)
}
