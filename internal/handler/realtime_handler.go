package handler

import (
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/pkg/serverutils"
	internalWS "medimate-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type RealtimeHandler struct {
	hub    *internalWS.Hub
	deps   internalWS.Deps
	jwt    fiber.Handler
	logger logger.ILogger
}

func NewRealtimeHandler(hub *internalWS.Hub, deps internalWS.Deps, jwt fiber.Handler, log logger.ILogger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:    hub,
		deps:   deps,
		jwt:    jwt,
		logger: log,
	}
}

// ServeWs upgrades an authenticated request. The token comes from the
// "token" query parameter (browsers) or the Authorization header (tooling).
func (h *RealtimeHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userID := serverutils.UserID(c)
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("RealtimeHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID.String()})
		internalWS.ServeWs(h.hub, conn, userID, h.deps)
		h.logger.Info("RealtimeHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID.String()})
	})(c)
}

// Unverified users may connect to follow their session; chat frames are
// checked one by one in the client.
func (h *RealtimeHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.jwt, h.ServeWs)
}

