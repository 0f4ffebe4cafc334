package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/api/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API already applies CORS; the websocket endpoint mirrors it.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Stream handles GET /api/v1/stream, pushing one JSON snapshot per completed
// tick over a websocket. A consumer that falls behind skips ticks rather
// than backpressuring the loop.
func (h *TwinHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	ch, cancel := h.loop.Subscribe()
	defer cancel()

	// Reader goroutine: we expect no client messages, but reading is how
	// websocket close frames surface.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	top := h.loop.Topology()
	for {
		select {
		case snap := <-ch:
			if err := conn.WriteJSON(models.FromSnapshot(snap, top)); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("[API] stream write: %v", err)
				}
				return
			}
		case <-closed:
			return
		}
	}
}
