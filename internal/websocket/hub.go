package websocket

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	UserID() uuid.UUID
	IsAdmin() bool
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections. Collector clients are grouped by user so
// they only see their own portfolio; admin clients receive every event.
// It is safe for concurrent use
type Hub struct {
	// collectors maps user ID to a map of client ID to client
	collectors map[uuid.UUID]map[string]ClientInterface
	admins     map[string]ClientInterface
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		collectors: make(map[uuid.UUID]map[string]ClientInterface),
		admins:     make(map[string]ClientInterface),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.UserID()
	clientID := client.ID()

	if client.IsAdmin() {
		h.admins[clientID] = client
	} else {
		if h.collectors[userID] == nil {
			h.collectors[userID] = make(map[string]ClientInterface)
		}
		h.collectors[userID][clientID] = client
	}

	log.Debug().
		Str("user_id", userID.String()).
		Str("client_id", clientID).
		Bool("admin", client.IsAdmin()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.UserID()
	clientID := client.ID()

	if _, ok := h.admins[clientID]; ok {
		delete(h.admins, clientID)
		log.Debug().
			Str("user_id", userID.String()).
			Str("client_id", clientID).
			Msg("WebSocket client unregistered")
		return
	}

	if clients, ok := h.collectors[userID]; ok {
		if _, exists := clients[clientID]; exists {
			delete(clients, clientID)

			// Clean up empty collector maps
			if len(clients) == 0 {
				delete(h.collectors, userID)
			}

			log.Debug().
				Str("user_id", userID.String()).
				Str("client_id", clientID).
				Msg("WebSocket client unregistered")
		}
	}
}

// Broadcast sends an event to the collector's clients and all admins
func (h *Hub) Broadcast(collectorID uuid.UUID, event Event) {
	h.mu.RLock()
	recipients := make([]ClientInterface, 0, len(h.admins)+len(h.collectors[collectorID]))
	for _, client := range h.collectors[collectorID] {
		recipients = append(recipients, client)
	}
	for _, client := range h.admins {
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	h.send(recipients, event)
}

// BroadcastAll sends an event to every connected client
func (h *Hub) BroadcastAll(event Event) {
	h.mu.RLock()
	recipients := make([]ClientInterface, 0, len(h.admins))
	for _, clients := range h.collectors {
		for _, client := range clients {
			recipients = append(recipients, client)
		}
	}
	for _, client := range h.admins {
		recipients = append(recipients, client)
	}
	h.mu.RUnlock()

	h.send(recipients, event)
}

func (h *Hub) send(recipients []ClientInterface, event Event) {
	if len(recipients) == 0 {
		return
	}

	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	// Send to each client asynchronously
	for _, client := range recipients {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("user_id", c.UserID().String()).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("event_type", event.Type).
		Int("client_count", len(recipients)).
		Msg("Broadcast event")
}

// ClientCount returns the number of clients connected for a user
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.collectors[userID])
	for _, client := range h.admins {
		if client.UserID() == userID {
			n++
		}
	}
	return n
}

// TotalClientCount returns the total number of connected clients
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := len(h.admins)
	for _, clients := range h.collectors {
		total += len(clients)
	}
	return total
}
