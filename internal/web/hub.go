package web

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Hub fans the live position stream out to websocket clients. New
// subscribers immediately receive the most recent message.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	clients    map[*client]bool
	last       []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 8),
		clients:    make(map[*client]bool),
	}
}

// Run owns the client set; call it in its own goroutine. It exits when
// the hub's broadcast channel is closed.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			if h.last != nil {
				select {
				case c.send <- h.last:
				default:
				}
			}
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case msg, ok := <-h.broadcast:
			if !ok {
				for c := range h.clients {
					close(c.send)
				}
				return
			}
			h.last = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer: drop it rather than stall the loop.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast queues a message for all clients, dropping it if the hub is
// backed up (the next position supersedes it anyway).
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
	}
}

// Close shuts down Run and disconnects all clients.
func (h *Hub) Close() {
	close(h.broadcast)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 512,
	// The UI is served from the box itself on the drone's network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func serveWs(h *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 8)}
	h.register <- c

	go func() {
		defer conn.Close()
		for msg := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()
	go func() {
		defer func() { h.unregister <- c }()
		for {
			// Clients don't send anything; reading just detects the close.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
