package broker

import (
	"context"
	"encoding/json"

	"github.com/Baaaki/roomchat/internal/models"
	"github.com/Baaaki/roomchat/pkg/logger"
)

// Publisher sends room events through a broker instead of straight to
// local clients. Delivery happens in Forward on every subscribed process.
type Publisher struct {
	broker RoomBroker
}

func NewPublisher(b RoomBroker) *Publisher {
	return &Publisher{broker: b}
}

func (p *Publisher) PublishToRoom(ctx context.Context, room models.RoomID, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.broker.Publish(ctx, RoomEvent{
		Room:  room,
		Event: event,
		Data:  data,
	})
}

// Forward subscribes to b and hands every event to deliver until ctx ends
// or the subscription closes. The subscription is live when Forward
// returns; the returned channel closes once forwarding has stopped.
func Forward(ctx context.Context, b RoomBroker, deliver func(RoomEvent)) (<-chan struct{}, error) {
	events, err := b.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Forwarding room events from broker")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			deliver(ev)
		}
		logger.Log.Info("Broker forwarding stopped")
	}()

	return done, nil
}
