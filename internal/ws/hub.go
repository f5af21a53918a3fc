package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Event types broadcast on a restaurant's order feed.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusUpdated = "order.status_updated"
)

// Event is one message on a restaurant's order feed. Order carries the same
// body the REST response for the order did; the hub marshals it once per
// broadcast.
type Event struct {
	Type  string `json:"type"`
	Order any    `json:"order"`
}

// Hub fans order events out to the POS and kitchen screens watching each
// restaurant. Rooms are keyed by restaurant ID and removed when their last
// client leaves.
type Hub struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]map[*Client]bool
}

// NewHub creates an empty hub. No background goroutine is needed; clients
// attach and detach through their connection pumps.
func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[*Client]bool)}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.restaurantID] == nil {
		h.rooms[c.restaurantID] = make(map[*Client]bool)
	}
	h.rooms[c.restaurantID][c] = true
}

// drop detaches the client and closes its send channel. A client can be
// dropped twice (read pump exit racing a slow-client eviction); the second
// call finds it already gone and does nothing.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.evict(c)
}

// evict requires mu to be held.
func (h *Hub) evict(c *Client) {
	clients, ok := h.rooms[c.restaurantID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.rooms, c.restaurantID)
	}
}

// BroadcastToRestaurant delivers the event to every client in the
// restaurant's room. A client whose send buffer is full is evicted rather
// than blocking the caller.
func (h *Hub) BroadcastToRestaurant(restaurantID uuid.UUID, event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", event.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for client := range h.rooms[restaurantID] {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		h.evict(client)
	}
}
