package server

import (
	"log/slog"

	"jeevandhara/internal/middleware"
	"jeevandhara/internal/models"
	"jeevandhara/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// websocketUpgrade rejects plain HTTP requests on websocket routes.
func (s *Server) websocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// NotificationsWebSocket streams in-app notifications for the caller's
// profile. Messages are the JSON envelopes published by the notifier.
func (s *Server) NotificationsWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		kind, _ := conn.Locals("userKind").(string)
		if userID == 0 || kind == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		to := notifications.Recipient{Kind: models.UserKind(kind), ID: userID}
		client, err := s.hub.Register(to, conn)
		if err != nil {
			middleware.Logger.Warn("notification socket rejected",
				slog.String("channel", notifications.Channel(to)),
				slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.Serve()
	})
}
