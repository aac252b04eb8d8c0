package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/omars-lab/knowledge-agents/internal/streamstatus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamStage upgrades GET /api/v1/notes/stream/:request_id to a websocket
// and forwards every stage transition streamstatus publishes for that
// request ID until the client disconnects.
func (h *Handler) StreamStage(broadcaster *streamstatus.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("request_id")
		if requestID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "request_id is required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		broadcaster.Subscribe(requestID, conn)
		defer broadcaster.Unsubscribe(requestID, conn)

		// Block until the client closes the connection; stage events are
		// pushed from the pipeline goroutine, not read back here.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
