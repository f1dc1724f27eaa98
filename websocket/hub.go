package websocket

import (
	"context"
	"time"

	"bookshelf/types"

	"github.com/rs/zerolog/log"
)

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run(ctx context.Context)
	Broadcast(message types.SnapshotMessage)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
	ClientCount(view types.View) int
}

// hub maintains the set of active clients per view and broadcasts snapshots to them.
// The latest message of each view is replayed to clients as they register.
type hub struct {
	// Registered clients mapped by view
	clients map[types.View]map[*Client]bool

	// Last message broadcast per view
	latest map[types.View]types.SnapshotMessage

	broadcast  chan types.SnapshotMessage
	register   chan *Client
	unregister chan *Client
	counts     chan countRequest
	done       chan struct{}
}

type countRequest struct {
	view  types.View
	reply chan int
}

// NewHub creates a new WebSocket hub
func NewHub() Hub {
	return &hub{
		clients:    make(map[types.View]map[*Client]bool),
		latest:     make(map[types.View]types.SnapshotMessage),
		broadcast:  make(chan types.SnapshotMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main event loop. It returns when ctx is done, closing every client.
func (h *hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
			}
			h.clients = make(map[types.View]map[*Client]bool)
			return

		case client := <-h.register:
			if h.clients[client.view] == nil {
				h.clients[client.view] = make(map[*Client]bool)
			}
			h.clients[client.view][client] = true
			if msg, ok := h.latest[client.view]; ok {
				client.send <- msg
			}
			log.Debug().Str("client", client.id.String()).Str("view", string(client.view)).Msg("WebSocket client connected")

		case client := <-h.unregister:
			h.remove(client)
			log.Debug().Str("client", client.id.String()).Str("view", string(client.view)).Msg("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.latest[message.View] = message
			for client := range h.clients[message.View] {
				select {
				case client.send <- message:
				default:
					log.Warn().Str("client", client.id.String()).Msg("WebSocket client too slow, disconnecting")
					h.remove(client)
				}
			}

		case req := <-h.counts:
			req.reply <- len(h.clients[req.view])
		}
	}
}

func (h *hub) remove(client *Client) {
	clients, ok := h.clients[client.view]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.send)
		if len(clients) == 0 {
			delete(h.clients, client.view)
		}
	}
}

// Broadcast sends a snapshot message to every client of its view. It waits
// for the hub loop to accept the message and returns immediately once the hub
// has stopped.
func (h *hub) Broadcast(message types.SnapshotMessage) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- message:
	case <-h.done:
		log.Debug().Str("view", string(message.View)).Msg("WebSocket hub stopped, discarding message")
	}
}

// RegisterClient registers a new client with the hub. A client registered
// after the hub stopped has its send channel closed right away.
func (h *hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of clients connected to view
func (h *hub) ClientCount(view types.View) int {
	reply := make(chan int, 1)
	select {
	case h.counts <- countRequest{view: view, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}
