package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Broadcaster fans crawl events out to every connected WebSocket client.
// Its Publish method matches the crawl service's page callback so the two
// can be wired together before the server exists.
type Broadcaster struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{conns: make(map[*websocket.Conn]struct{})}
}

// Publish reports one crawled page to all clients.
func (b *Broadcaster) Publish(sourceID, pageURL string) {
	b.send(Message{
		Type:    "progress",
		Content: pageURL,
		Data:    sourceID,
	})
}

func (b *Broadcaster) attach(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[conn] = struct{}{}
}

func (b *Broadcaster) detach(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, conn)
}

func (b *Broadcaster) send(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		// A dead client is dropped on its next read, not here.
		_ = conn.WriteJSON(msg)
	}
}
