package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/synapsefi/bridge-hub/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards may connect cross-origin
	},
}

// StreamHub fans newly built advisories out to connected dashboards over
// a websocket. This is additive to the normative poll endpoint (spec §6)
// — entities that never connect still get every advisory via GET
// /api/v1/advisories.
type StreamHub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

func NewStreamHub() *StreamHub {
	return &StreamHub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Run drains the broadcast channel and fans each message out to every
// connected client until the channel is closed.
func (h *StreamHub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Stream] write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades the connection and registers it for advisory pushes.
func (h *StreamHub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Stream] upgrade failed: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mutex.Unlock()

	log.Printf("[Stream] client connected, total=%d", total)

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			remaining := len(h.clients)
			h.mutex.Unlock()
			conn.Close()
			log.Printf("[Stream] client disconnected, total=%d", remaining)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[Stream] read error: %v", err)
				}
				break
			}
		}
	}()
}

// PushAdvisory broadcasts a freshly built advisory to every connected client.
func (h *StreamHub) PushAdvisory(adv models.Advisory) {
	payload := map[string]any{
		"type":     "advisory",
		"advisory": adv,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Stream] failed to marshal advisory push: %v", err)
		return
	}
	h.broadcast <- data
}
