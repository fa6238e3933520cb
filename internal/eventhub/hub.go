// Package eventhub fans out block-connected/disconnected/reorg events
// to websocket subscribers, adapted from the teacher's internal/api
// Hub (which did the same for CoinJoin alerts): same broadcast-channel
// and per-client-write-deadline structure, now carrying chain-feed
// events instead of forensics alerts.
package eventhub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub maintains the set of active websocket clients and broadcasts
// chain-feed events to all of them.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[eventhub] write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe handles an incoming websocket connection.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[eventhub] failed to upgrade websocket: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mutex.Unlock()
	log.Printf("[eventhub] client connected, total %d", total)

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			remaining := len(h.clients)
			h.mutex.Unlock()
			conn.Close()
			log.Printf("[eventhub] client disconnected, total %d", remaining)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[eventhub] read error: %v", err)
				}
				break
			}
		}
	}()
}

// Broadcast pushes a raw JSON payload to every connected client. A nil
// Hub is a valid no-op receiver, so callers (e.g. the chain-feed
// driver) don't need to guard every call with a nil check.
func (h *Hub) Broadcast(data []byte) {
	if h == nil {
		return
	}
	h.broadcast <- data
}

type blockEvent struct {
	Type   string `json:"type"`
	Height int32  `json:"height"`
	Hash   string `json:"hash"`
}

// BroadcastConnected announces that the index applied a new block.
func (h *Hub) BroadcastConnected(height int32, hash string) {
	h.broadcastEvent("connected", height, hash)
}

// BroadcastDisconnected announces that the index rewound a block.
func (h *Hub) BroadcastDisconnected(height int32, hash string) {
	h.broadcastEvent("disconnected", height, hash)
}

// BroadcastReorg announces that the driver is unwinding a block as
// part of resolving a chain reorganization.
func (h *Hub) BroadcastReorg(height int64, hash string) {
	h.broadcastEvent("reorg", int32(height), hash)
}

func (h *Hub) broadcastEvent(kind string, height int32, hash string) {
	if h == nil {
		return
	}
	payload, err := json.Marshal(blockEvent{Type: kind, Height: height, Hash: hash})
	if err != nil {
		log.Printf("[eventhub] failed to marshal %s event: %v", kind, err)
		return
	}
	h.Broadcast(payload)
}
