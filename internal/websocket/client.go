package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"noa-assistant-be/internal/dto"
	"noa-assistant-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024

	logModule = "WEBSOCKET"
)

// TurnHandler is the dialogue entry point a connection feeds.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req *dto.TurnRequest) (*dto.TurnResponse, error)
}

// Client runs one turn per inbound text frame. The session id sticks to the
// connection once the first reply assigns it.
type Client struct {
	Conn      *websocket.Conn
	Handler   TurnHandler
	Logger    logger.ILogger
	UserID    string
	SessionID string

	// Buffered channel of outbound messages.
	Send chan []byte
}

type errorFrame struct {
	Error string `json:"error"`
}

// readPump reads frames until the peer goes away. It owns Send and closes it
// on exit so writePump can finish.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		close(c.Send)
		c.Logger.Debug(logModule, "readPump exiting", map[string]interface{}{"session_id": c.SessionID})
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Logger.Warn(logModule, "Connection closed unexpectedly", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		out, err := c.turn(ctx, raw)
		if err != nil {
			out, _ = json.Marshal(errorFrame{Error: err.Error()})
		}
		c.Send <- out
	}
}

func (c *Client) turn(ctx context.Context, raw []byte) ([]byte, error) {
	req := c.parse(raw)
	res, err := c.Handler.HandleTurn(ctx, req)
	if err != nil {
		return nil, err
	}
	c.SessionID = res.SessionId
	return json.Marshal(res)
}

// parse accepts either a TurnRequest object or the bare message text.
func (c *Client) parse(raw []byte) *dto.TurnRequest {
	req := &dto.TurnRequest{}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") || json.Unmarshal(raw, req) != nil {
		req = &dto.TurnRequest{Message: trimmed}
	}
	if req.SessionId == "" {
		req.SessionId = c.SessionID
	}
	if req.UserId == "" {
		req.UserId = c.UserID
	}
	return req
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Logger.Debug(logModule, "Ping failed", map[string]interface{}{"error": err.Error()})
				return
			}
		}
	}
}
