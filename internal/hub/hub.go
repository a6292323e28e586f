package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Baaaki/roomchat/internal/models"
	"github.com/Baaaki/roomchat/pkg/logger"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Hub tracks room membership for live clients and fans events out to them.
// A client may be in any number of rooms; membership ends when it unregisters.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[models.RoomID]map[*Client]struct{}
	clients map[*Client]struct{}
	closed  bool
}

func New() *Hub {
	return &Hub{
		rooms:   make(map[models.RoomID]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(c.send)
		return
	}
	h.clients[c] = struct{}{}

	logger.Log.Debug("Client registered",
		zap.String("client_id", c.id),
		zap.Int("clients", len(h.clients)),
	)
}

// Unregister drops the client from every room and closes its send queue.
// Calling it twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)

	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)

	logger.Log.Debug("Client unregistered",
		zap.String("client_id", c.id),
		zap.Int("clients", len(h.clients)),
	)
}

// Join adds the client to room. Joining twice has no further effect.
func (h *Hub) Join(c *Client, room models.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}

	logger.Log.Debug("Client joined room",
		zap.String("client_id", c.id),
		zap.String("room", string(room)),
		zap.Int("members", len(members)),
	)
}

// Broadcast queues env for every member of room and returns how many
// clients it reached. A client whose queue is full misses the event.
func (h *Hub) Broadcast(room models.RoomID, env Envelope) int {
	frame, err := json.Marshal(env)
	if err != nil {
		logger.Log.Error("Failed to encode event",
			zap.String("event", env.Event),
			zap.Error(err),
		)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.rooms[room] {
		select {
		case c.send <- frame:
			delivered++
		default:
			logger.Log.Warn("Client send queue full, dropping event",
				zap.String("client_id", c.id),
				zap.String("room", string(room)),
				zap.String("event", env.Event),
			)
		}
	}
	return delivered
}

// PublishToRoom delivers an event to the members of room on this process.
func (h *Hub) PublishToRoom(_ context.Context, room models.RoomID, event string, payload any) error {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}

	n := h.Broadcast(room, env)
	logger.Log.Debug("Event broadcast",
		zap.String("room", string(room)),
		zap.String("event", event),
		zap.Int("recipients", n),
	)
	return nil
}

func (h *Hub) Members(room models.RoomID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomsOf lists the rooms a client has joined.
func (h *Hub) RoomsOf(c *Client) []models.RoomID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.Filter(lo.Keys(h.rooms), func(room models.RoomID, _ int) bool {
		_, ok := h.rooms[room][c]
		return ok
	})
}

// Shutdown closes every client queue. Clients registered afterwards are
// closed immediately.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[models.RoomID]map[*Client]struct{})

	logger.Log.Info("Hub shut down")
}
