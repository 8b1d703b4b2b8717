package server

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/tsamuels456/unboundedfigures/internal/middleware"
	"github.com/tsamuels456/unboundedfigures/internal/models"
)

const localUserLocal = "localUser"

// LocalUserRequired resolves the verified identity to its local user row.
// It must run after middleware.IdentityRequired.
func (s *Server) LocalUserRequired(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Unauthorized"))
	}

	user, err := s.identityService.LocalUser(c.UserContext(), identity.Subject)
	if err != nil {
		return respondError(c, err)
	}

	setLocalUser(c, user)
	return c.Next()
}

func setLocalUser(c *fiber.Ctx, user *models.User) {
	c.Locals("userID", user.ID)
	c.Locals(localUserLocal, user)
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID))
}

// localUser returns the row LocalUserRequired attached.
func localUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUserLocal).(*models.User)
	return user
}

// optionalUser resolves the caller on public endpoints. A missing or invalid
// token, or an identity without a local row, means anonymous.
func (s *Server) optionalUser(c *fiber.Ctx) *models.User {
	if user := localUser(c); user != nil {
		return user
	}
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil
	}
	user, err := s.identityService.LocalUser(c.UserContext(), identity.Subject)
	if err != nil {
		return nil
	}
	setLocalUser(c, user)
	return user
}

// viewerID is the optional caller's id, 0 when anonymous.
func (s *Server) viewerID(c *fiber.Ctx) uint {
	if user := s.optionalUser(c); user != nil {
		return user.ID
	}
	return 0
}
