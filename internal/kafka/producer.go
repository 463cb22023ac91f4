package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// LockerEvent is the change record published after every committed
// mutation. Lookup codes never appear here.
type LockerEvent struct {
	Type         string    `json:"type"`
	LockerNumber int       `json:"locker_number,omitempty"`
	StudentID    string    `json:"student_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	At           time.Time `json:"at"`
}

const (
	EventApplied  = "locker_applied"
	EventApproved = "locker_approved"
	EventRejected = "locker_rejected"
	EventCleared  = "locker_cleared"
	EventAssigned = "locker_assigned"
	EventVacated  = "locker_vacated"
	EventMemo     = "locker_memo_saved"
	EventReset    = "locker_reset"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
