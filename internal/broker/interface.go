package broker

import (
	"context"
	"encoding/json"

	"github.com/Baaaki/roomchat/internal/models"
)

// RoomEvent is a room-scoped event travelling between server processes.
type RoomEvent struct {
	Room  models.RoomID   `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RoomBroker fans room events out to every process subscribed to it,
// including the one that published.
type RoomBroker interface {
	Publish(ctx context.Context, ev RoomEvent) error
	// Subscribe returns a channel of events that closes when ctx ends
	// or the broker is closed.
	Subscribe(ctx context.Context) (<-chan RoomEvent, error)
	Close() error
}
