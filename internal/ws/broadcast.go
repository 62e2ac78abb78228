// Package ws pushes session snapshots to connected dashboards over
// WebSocket. The polling endpoints remain the primary contract; the
// broadcaster is the same read projection on a server-side ticker, for
// observers that prefer push.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mi-lab/backend/internal/docstore"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 16),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	store    *docstore.Store
	interval time.Duration
}

func NewBroadcaster(store *docstore.Store, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Broadcaster{
		clients:  make(map[*client]bool),
		store:    store,
		interval: interval,
	}
}

// Run pushes snapshots until ctx is cancelled. Ticks with no connected
// clients are skipped without touching the store.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if b.ClientCount() == 0 {
				continue
			}
			b.broadcast(b.snapshot())
		}
	}
}

// HandleWS upgrades the request and registers the connection. The read
// side is drained and discarded: observers never mutate through this
// surface.
func (b *Broadcaster) HandleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	log.Printf("ws client connected: %s", r.RemoteAddr)
	c := b.addClient(conn)

	go func() {
		defer func() {
			b.removeClient(c)
			log.Printf("ws client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (b *Broadcaster) addClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	data, _ := json.Marshal(b.snapshot())
	select {
	case c.send <- data:
	default:
	}

	return c
}

func (b *Broadcaster) removeClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) snapshot() Message {
	return Message{
		Type: MsgSnapshot,
		Payload: SnapshotPayload{
			Status:   b.store.ReadStatus(),
			Feedback: b.store.ReadFeedback(),
		},
	}
}

func (b *Broadcaster) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it.
			log.Printf("ws: client too slow, disconnecting")
			b.removeClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// checkOrigin admits same-host and localhost origins. The orchestrator
// binds to loopback by default; this keeps a stray browser tab on
// another host from subscribing.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host
	if host == r.Host {
		return true
	}
	for _, local := range []string{"localhost", "127.0.0.1", "[::1]"} {
		if host == local || strings.HasPrefix(host, local+":") {
			return true
		}
	}
	return false
}
