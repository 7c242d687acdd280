// Package ws bridges the Bus (internal/alertbus) to WebSocket clients, in
// the style of tphakala-birdnet-go's internal/api/v2/streams.go Client —
// one goroutine pair (read/write pump) per connection, generalized from
// that audio-level/notifications stream to the alert push channel of
// spec.md §4.6/§4.7.
package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"overwatch/internal/alertbus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve upgrades the connection and pumps events from a fresh Bus
// subscription until the client disconnects (spec.md §4.7 "Subscribe").
// The subscription is cancelled on return, releasing its sink.
func Serve(bus *alertbus.Bus, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	sub := bus.Subscribe()
	defer sub.Cancel()

	done := make(chan struct{})
	go readPump(conn, done)
	writePump(conn, sub, done)
}

// writePump forwards bus events to the socket and pings on an interval,
// same shape as birdnet-go's writePump.
func writePump(conn *websocket.Conn, sub *alertbus.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readPump drains client frames (subscribers are read-only in this
// protocol) so pong control frames are processed and the connection's
// close is detected promptly.
func readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
