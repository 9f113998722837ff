package websocket

import (
	"context"

	"noa-assistant-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

// ServeWs runs a dialogue over an upgraded connection until it closes.
func ServeWs(c *websocket.Conn, handler TurnHandler, log logger.ILogger) {
	client := &Client{
		Conn:      c,
		Handler:   handler,
		Logger:    log,
		UserID:    c.Query("user_id"),
		SessionID: c.Query("session_id"),
		Send:      make(chan []byte, 16),
	}
	log.Info(logModule, "Dialogue connection opened", map[string]interface{}{
		"session_id": client.SessionID,
	})

	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()
	client.readPump(context.Background())
	<-done
}
