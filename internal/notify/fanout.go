package notify

import (
	"context"
	"log"

	"github.com/seongmin-dev/lockerdesk/internal/kafka"
)

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Fanout is the engine-facing notifier: every committed mutation is
// broadcast to in-process stream subscribers and published to Kafka.
// Both legs are fire-and-forget.
type Fanout struct {
	hub      *Hub
	producer Producer
	topic    string
}

func NewFanout(hub *Hub, producer Producer, topic string) *Fanout {
	return &Fanout{hub: hub, producer: producer, topic: topic}
}

func (f *Fanout) StateChanged(ctx context.Context, event kafka.LockerEvent) {
	if f.hub != nil {
		f.hub.Broadcast("changed")
	}
	if f.producer == nil || f.topic == "" {
		return
	}
	if err := f.producer.Publish(ctx, f.topic, event.Type, event); err != nil {
		log.Printf("WARNING: failed to publish %s event: %v", event.Type, err)
	}
}
