package server

import (
	"strings"
	"unicode"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// pathID reads a positive integer route parameter. When it is missing or malformed
// the 400 is already written and ok is false; the handler should return nil.
func pathID(c *fiber.Ctx, param string) (id uint, ok bool) {
	n, err := c.ParamsInt(param)
	if err != nil || n <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, false
	}
	return uint(n), true
}

// humanizeParam turns "parentCommentId" into "parent comment ID" for error messages.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	stem, ok := strings.CutSuffix(param, "Id")
	if !ok {
		return param
	}

	var b strings.Builder
	for i, r := range stem {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	b.WriteString(" ID")
	return b.String()
}

// respondError renders err with the status its AppError code maps to. The client
// never sees an internal cause, so 5xx causes are logged here.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		observability.Logger(c.UserContext()).Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	return models.RespondWithError(c, status, err)
}

func badBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

// methodNotAllowed answers methods a path does not serve and lists the ones it does in Allow.
func methodNotAllowed(methods ...string) fiber.Handler {
	allow := strings.Join(methods, ", ")
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, allow)
		return models.RespondWithError(c, fiber.StatusMethodNotAllowed, fiber.ErrMethodNotAllowed)
	}
}
