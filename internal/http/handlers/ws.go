package handlers

import (
	"net/http"

	"magnum_stars/internal/logger"
	"magnum_stars/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// mini-app runs on a separate origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WS upgrades the connection and subscribes the client to live rate updates.
func (h *Handler) WS(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		client := ws.NewClient(conn, hub)
		go client.Run()
	}
}
