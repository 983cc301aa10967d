package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// RequestEvent is the payload published on every booking request
// lifecycle change. Consumers (notifications worker, analytics) key on
// Type: request_submitted, request_accepted, request_declined,
// request_negotiated, request_completed, request_cancelled,
// request_expired.
type RequestEvent struct {
	Type           string    `json:"type"`
	RequestID      string    `json:"request_id"`
	ScheduleID     string    `json:"schedule_id"`
	CustomerID     string    `json:"customer_id"`
	BusinessID     string    `json:"business_id"`
	SeatsRequested int       `json:"seats_requested"`
	PriceOffered   float64   `json:"price_offered"`
	Status         string    `json:"status"`
	DeclineReason  string    `json:"decline_reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

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
		return fmt.Errorf("marshal payload: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
