package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Baaaki/roomchat/internal/hub"
	"github.com/Baaaki/roomchat/internal/models"
	"github.com/Baaaki/roomchat/internal/service"
	"github.com/Baaaki/roomchat/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second // Time allowed to write a message to the peer
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // 54 seconds
	maxMessageSize = 64 * 1024
)

type WebSocketHandler struct {
	messageService *service.MessageService
	hub            *hub.Hub
	upgrader       websocket.Upgrader
	sendBuffer     int
}

func NewWebSocketHandler(
	messageService *service.MessageService,
	h *hub.Hub,
	allowedOrigins []string,
	sendBuffer int,
) *WebSocketHandler {
	return &WebSocketHandler{
		messageService: messageService,
		hub:            h,
		sendBuffer:     sendBuffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and those whose Origin is listed. "*" allows everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := lo.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		return lo.Contains(allowed, origin)
	}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := hub.NewClient(h.sendBuffer)
	h.hub.Register(client)

	logger.Log.Info("Client connected",
		zap.String("client_id", client.ID()),
		zap.String("remote_addr", c.Request.RemoteAddr),
		zap.Int("total", h.hub.ClientCount()),
	)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, client)
	}()

	h.readLoop(c.Request.Context(), conn, client)

	h.hub.Unregister(client)
	<-writerDone
	conn.Close()

	logger.Log.Info("Client disconnected",
		zap.String("client_id", client.ID()),
		zap.Int("remaining", h.hub.ClientCount()),
	)
}

// readLoop handles commands from the peer until the connection fails.
func (h *WebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Log.Warn("WebSocket read error",
					zap.String("client_id", client.ID()),
					zap.Error(err),
				)
			}
			return
		}

		var env hub.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Log.Warn("Ignoring malformed frame",
				zap.String("client_id", client.ID()),
				zap.Error(err),
			)
			continue
		}

		switch env.Event {
		case hub.CommandJoinRoom:
			h.handleJoinRoom(client, env.Data)

		case hub.CommandSendMessage:
			h.handleSendMessage(ctx, client, env.Data)

		default:
			logger.Log.Warn("Ignoring unknown command",
				zap.String("client_id", client.ID()),
				zap.String("event", env.Event),
			)
		}
	}
}

func (h *WebSocketHandler) handleJoinRoom(client *hub.Client, data json.RawMessage) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		logger.Log.Warn("Invalid joinRoom payload",
			zap.String("client_id", client.ID()),
			zap.Error(err),
		)
		return
	}

	h.hub.Join(client, models.RoomID(room))
}

func (h *WebSocketHandler) handleSendMessage(ctx context.Context, client *hub.Client, data json.RawMessage) {
	var cmd hub.SendMessageCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		logger.Log.Warn("Invalid sendMessage payload",
			zap.String("client_id", client.ID()),
			zap.Error(err),
		)
		return
	}

	msg, err := h.messageService.SendMessage(ctx, cmd.Username, cmd.Message, models.RoomID(cmd.Room))
	if err != nil {
		// No error event exists; the sender simply never sees its message.
		logger.Log.Error("Failed to store message",
			zap.String("client_id", client.ID()),
			zap.String("room", cmd.Room),
			zap.Error(err),
		)
		return
	}

	logger.Log.Debug("Message stored",
		zap.String("message_id", msg.ID),
		zap.String("room", cmd.Room),
	)
}

// writeLoop is the only writer on conn. It exits when the hub closes the
// client's queue or a write fails.
func (h *WebSocketHandler) writeLoop(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Log.Warn("Failed to write to client",
					zap.String("client_id", client.ID()),
					zap.Error(err),
				)
				// Unblock readLoop so the client gets unregistered
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.Debug("Ping failed",
					zap.String("client_id", client.ID()),
					zap.Error(err),
				)
				conn.Close()
				return
			}
		}
	}
}
