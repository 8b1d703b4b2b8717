package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/cache"
	"github.com/tsamuels456/unboundedfigures/internal/middleware"
	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

const wsTicketTTL = 30 * time.Second

var errRealtimeUnavailable = models.NewUnavailableError("Realtime notifications are unavailable")

// WSTicketResponse is returned by POST /api/ws/ticket.
type WSTicketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresIn int    `json:"expiresIn"`
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue websocket ticket
// @Description Single-use ticket, valid for 30 seconds, to pass as ?ticket= when opening /api/ws.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} WSTicketResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil || s.hub == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, errRealtimeUnavailable)
	}

	ticket := uuid.NewString()
	userID := localUser(c).ID
	if err := s.redis.Set(c.UserContext(), cache.WSTicketKey(ticket), userID, wsTicketTTL).Err(); err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(WSTicketResponse{Ticket: ticket, ExpiresIn: int(wsTicketTTL / time.Second)})
}

// WSTicketRequired consumes the ?ticket= issued by IssueWSTicket before the upgrade.
func (s *Server) WSTicketRequired(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired, fiber.ErrUpgradeRequired)
	}
	if s.redis == nil || s.hub == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, errRealtimeUnavailable)
	}

	invalid := models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	ticket := c.Query("ticket")
	if ticket == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized, invalid)
	}

	// GETDEL keeps tickets single-use across replicas.
	raw, err := s.redis.GetDel(c.UserContext(), cache.WSTicketKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return models.RespondWithError(c, fiber.StatusUnauthorized, invalid)
	}
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || userID == 0 {
		return models.RespondWithError(c, fiber.StatusUnauthorized, invalid)
	}
	// The figure may have been removed between ticket and upgrade.
	owner, err := s.userRepo.GetByID(c.UserContext(), uint(userID))
	if models.StatusFor(err) == fiber.StatusNotFound {
		return models.RespondWithError(c, fiber.StatusUnauthorized, invalid)
	}
	if err != nil {
		return respondError(c, err)
	}

	c.Locals("userID", owner.ID)
	c.SetUserContext(middleware.WithLocals(c, c.UserContext()))
	return c.Next()
}

// WebsocketHandler handles GET /api/ws
// @Summary Notification stream
// @Description Upgrades to a websocket that receives follow and comment_created events for the ticket owner.
// @Tags notifications
// @Param ticket query string true "Ticket from POST /api/ws/ticket"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			observability.L().Warn("websocket register rejected", zap.Uint("user_id", userID), zap.Error(err))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
