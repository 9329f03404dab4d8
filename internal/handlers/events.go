package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/t03ya/ratingMKC/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type EventsHandler struct {
	hub *ws.Hub
}

func NewEventsHandler(hub *ws.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket streams live ledger events (points_changed, rank_up) for
// one chat to a dashboard client.
func (h *EventsHandler) HandleWebSocket(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	h.hub.AddConnection(chatID, conn)
	defer h.hub.RemoveConnection(chatID, conn)

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
