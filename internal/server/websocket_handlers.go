package server

import (
	"encoding/json"
	"log/slog"

	"pariposhan/internal/middleware"
	"pariposhan/internal/models"
	"pariposhan/internal/policy"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler returns a websocket handler that registers connections with the Hub.
// Authentication is handled by route middleware; the principal is read from connection locals.
// Clients then send {"type":"subscribe","topic":"item:post:7"} frames.
// @Summary Realtime event socket
// @Tags realtime
// @Param ticket query string false "Single-use ticket from POST /ws/ticket"
// @Success 101
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		p, _ := conn.Locals(middleware.PrincipalLocal).(policy.Principal)
		if !p.Authenticated() {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(p, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(p.UserID)), slog.String("error", err.Error()))
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("WebSocket upgrade required"))
		}
		return upgrade(c)
	}
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a single-use WebSocket ticket
// @Description Browsers cannot set headers on the upgrade request; the
// @Description ticket stands in for the bearer token once, within 30 seconds.
// @Tags realtime
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	ticket, err := s.tickets.Issue(c.UserContext(), middleware.PrincipalFrom(c))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}
