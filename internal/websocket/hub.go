package websocket

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub maintains the set of active clients and pushes activity messages to
// them. Clients are grouped by the user they authenticated as, so a task
// change only reaches the sessions of its owner.
type Hub struct {
	// mu guards clients and subscriptions. BroadcastToUser is called from
	// request and sweep goroutines while Run mutates the maps, so access
	// must be serialized.
	mu sync.Mutex

	// Registered clients.
	clients map[*Client]bool

	// Inbound messages for global broadcast.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// A map of user IDs to the set of clients authenticated as that user.
	subscriptions map[int64]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[int64]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.addSubscription(client)
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("total_clients", total).Int64("user_id", client.UserID).Msg("Client connected")
		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscription(client)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("total_clients", total).Msg("Client disconnected")
		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.removeSubscription(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToUser sends a message to every client authenticated as the given
// user. Safe to call from any goroutine.
func (h *Hub) BroadcastToUser(userID int64, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subscriptions[userID]; ok {
		for client := range subs {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
				delete(h.subscriptions[userID], client)
			}
		}
	}
}

// addSubscription and removeSubscription must be called with mu held.
func (h *Hub) addSubscription(client *Client) {
	if h.subscriptions[client.UserID] == nil {
		h.subscriptions[client.UserID] = make(map[*Client]bool)
	}
	h.subscriptions[client.UserID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	if subs, ok := h.subscriptions[client.UserID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.UserID)
		}
	}
}
