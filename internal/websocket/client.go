package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"medimate-be/internal/dto"
	"medimate-be/internal/pkg/logger"
	"medimate-be/internal/pkg/serverutils"
	"medimate-be/pkg/backend"
	"medimate-be/pkg/chatlist"
	"medimate-be/pkg/session"
	"medimate-be/pkg/transcript"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
)

// Inbound frame types.
const (
	frameWatchChats = "watch_chats"
	frameOpenChat   = "open_chat"
	frameCloseChat  = "close_chat"
	frameSend       = "send"
)

// Deps are the services a connection streams from.
type Deps struct {
	Sessions *session.Manager
	Backend  *backend.Client
	Logger   logger.ILogger
}

type inbound struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

type errorFrame struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	ChatID  string `json:"chat_id,omitempty"`
}

func errorFrameOf(err error) errorFrame {
	res := serverutils.ErrorFrom(err)
	return errorFrame{Code: res.ErrorCode, Message: res.Message, Field: res.Field}
}

type openChat struct {
	mirror *transcript.Mirror
	cancel context.CancelFunc

	// Held from reading the mirror until the frame is queued, so the last
	// chat frame always carries the newest state.
	pushMu sync.Mutex
}

// Client is a middleman between the websocket connection and the hub. Each
// client runs its own session watch and, on request, a chat list watch and
// one open chat.
type Client struct {
	Hub *Hub

	// The websocket connection. Nil when the client is driven directly.
	Conn *websocket.Conn

	UserID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte

	deps Deps

	mu          sync.Mutex
	closed      bool
	cancelChats context.CancelFunc
	open        *openChat
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, deps Deps) *Client {
	return &Client{Hub: hub, Conn: conn, UserID: userID, Send: make(chan []byte, sendBuffer), deps: deps}
}

// enqueue reports false when the buffer is full. Frames for a closed client
// are dropped.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancelChats != nil {
		c.cancelChats()
	}
	if c.open != nil {
		c.open.cancel()
	}
	close(c.Send)
}

func (c *Client) push(frameType string, data interface{}) {
	message, err := json.Marshal(Frame{Type: frameType, Data: data})
	if err != nil {
		c.deps.Logger.Error("WSClient", "Failed to encode frame", map[string]interface{}{"type": frameType, "error": err})
		return
	}
	if !c.enqueue(message) {
		c.deps.Logger.Warn("WSClient", "Send buffer full, dropping frame", map[string]interface{}{
			"user_id": c.UserID.String(),
			"type":    frameType,
		})
	}
}

// Start streams the session state until ctx ends. Chat streams stop as
// soon as the session is no longer verified.
func (c *Client) Start(ctx context.Context) {
	go func() {
		for state := range c.deps.Sessions.Watch(ctx, c.UserID) {
			c.push("session", state)
			if state.Status != session.StatusLoading && !state.Verified() {
				c.dropChats()
			}
		}
	}()
}

func (c *Client) dropChats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelChats != nil {
		c.cancelChats()
		c.cancelChats = nil
	}
	if c.open != nil {
		c.open.cancel()
		c.open = nil
	}
}

// verified answers a chat frame from an unverified or signed out user with
// an error frame of errorType.
func (c *Client) verified(ctx context.Context, errorType, chatID string) bool {
	gateErr := serverutils.GateError(c.deps.Sessions.Resolve(ctx, c.UserID))
	if gateErr == nil {
		return true
	}
	frame := errorFrameOf(gateErr)
	frame.ChatID = chatID
	c.push(errorType, frame)
	return false
}

// Handle applies one inbound frame.
func (c *Client) Handle(ctx context.Context, raw []byte) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.push("error", errorFrame{Code: "BAD_FRAME", Message: "Malformed frame."})
		return
	}

	switch msg.Type {
	case frameWatchChats:
		if c.verified(ctx, "chats_error", "") {
			c.watchChats(ctx)
		}
	case frameOpenChat:
		if !c.verified(ctx, "chat_error", msg.ChatID) {
			return
		}
		id, err := uuid.Parse(msg.ChatID)
		if err != nil {
			c.push("chat_error", errorFrame{Code: "CHAT_NOT_FOUND", Message: "Chat not found.", ChatID: msg.ChatID})
			return
		}
		c.openChat(ctx, id)
	case frameCloseChat:
		c.closeChat()
	case frameSend:
		if c.verified(ctx, "send_error", "") {
			c.send(ctx, msg.Content)
		}
	default:
		c.push("error", errorFrame{Code: "BAD_FRAME", Message: "Unknown frame type."})
	}
}

func (c *Client) watchChats(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return
	}
	if c.cancelChats != nil {
		c.cancelChats()
	}
	c.cancelChats = cancel
	c.mu.Unlock()

	mirror := chatlist.NewMirror(c.deps.Backend, c.UserID, c.deps.Logger)
	go func() {
		for chats, err := range mirror.Watch(ctx) {
			if err != nil {
				c.push("chats_error", errorFrameOf(err))
				return
			}
			c.push("chats", dto.ChatSessionsFrom(chats))
		}
	}()
}

func (c *Client) openChat(ctx context.Context, id uuid.UUID) {
	ctx, cancel := context.WithCancel(ctx)
	chat := &openChat{
		mirror: transcript.NewMirror(c.deps.Backend, c.UserID, id, c.deps.Logger),
		cancel: cancel,
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return
	}
	if c.open != nil {
		c.open.cancel()
	}
	c.open = chat
	c.mu.Unlock()

	chat.mirror.OnLocalChange(func() { c.pushChat(chat) })
	go func() {
		for _, err := range chat.mirror.Watch(ctx) {
			if err != nil {
				frame := errorFrameOf(err)
				frame.ChatID = id.String()
				c.push("chat_error", frame)
				c.release(chat)
				return
			}
			c.pushChat(chat)
		}
	}()
}

// release forgets chat if it is still the open one.
func (c *Client) release(chat *openChat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open == chat {
		c.open = nil
	}
	chat.cancel()
}

func (c *Client) closeChat() {
	c.mu.Lock()
	chat := c.open
	c.mu.Unlock()
	if chat != nil {
		c.release(chat)
	}
}

// pushChat sends what the open chat shows right now, pending messages
// included.
func (c *Client) pushChat(chat *openChat) {
	chat.pushMu.Lock()
	defer chat.pushMu.Unlock()

	local := chat.mirror.Local()
	res := dto.TranscriptFrom(&local)
	if res == nil {
		return
	}
	res.Sending = chat.mirror.Sending()
	c.push("chat", res)
}

// send posts to the open chat. The send outlives the connection so an
// answer that is already on its way still gets stored.
func (c *Client) send(ctx context.Context, content string) {
	c.mu.Lock()
	chat := c.open
	c.mu.Unlock()
	if chat == nil {
		c.push("send_error", errorFrame{Code: "CHAT_NOT_FOUND", Message: "Open a chat first."})
		return
	}

	go func() {
		sent, err := chat.mirror.Send(context.WithoutCancel(ctx), content)
		if err != nil {
			frame := errorFrameOf(err)
			frame.ChatID = chat.mirror.ChatID().String()
			c.push("send_error", frame)
		}
		if sent {
			c.pushChat(chat)
		}
	}()
}

// readPump pumps inbound frames from the websocket connection to Handle.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.Hub.remove(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.deps.Logger.Warn("WSClient", "Unexpected close", map[string]interface{}{
					"user_id": c.UserID.String(),
					"error":   err.Error(),
				})
			}
			return
		}
		c.Handle(ctx, message)
	}
}

// writePump pumps messages from Send to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One frame per websocket message; clients parse each as JSON.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
