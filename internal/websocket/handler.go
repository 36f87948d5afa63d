package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs runs one connection until the peer goes away.
func ServeWs(hub *Hub, conn *websocket.Conn, userID uuid.UUID, deps Deps) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := NewClient(hub, conn, userID, deps)
	if !hub.add(client) {
		conn.Close()
		return
	}
	client.Start(ctx)

	go client.writePump()
	client.readPump(ctx) // Run readPump in current goroutine (handler)
}
