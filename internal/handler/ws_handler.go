package handler

import (
	"log"
	"net/http"

	"github.com/aeroguard/aeroguard-api/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboards connect from arbitrary origins; the stream is read-only.
		return true
	},
}

// WSHandler upgrades dashboard connections onto the live measurement stream
type WSHandler struct {
	hub *ws.Hub
}

func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket godoc
// @Summary Live measurement stream
// @Description Upgrades to a WebSocket that pushes new_measurement events. Pass ?device_id= to receive a single device's readings only.
// @Tags WebSocket
// @Param device_id query string false "Restrict the stream to one device"
// @Success 101 {string} string "Switching Protocols"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, c.Query("device_id"))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
