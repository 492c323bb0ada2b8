package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/safecircle/server/internal/logger"
	"github.com/safecircle/server/internal/model"
)

// TypeEmergencyRecorded is the event type header for recorded emergencies.
const TypeEmergencyRecorded = "emergency.recorded"

// EmergencyRecorded is the payload published after an emergency is stored and fanned out
type EmergencyRecorded struct {
	EventID    int64                `json:"event_id"`
	AccountID  int64                `json:"account_id"`
	Category   string               `json:"category"`
	Details    string               `json:"details,omitempty"`
	Latitude   *float64             `json:"latitude,omitempty"`
	Longitude  *float64             `json:"longitude,omitempty"`
	RecordedAt time.Time            `json:"recorded_at"`
	Delivered  int                  `json:"delivered"`
	Results    []model.FanoutResult `json:"results"`
}

// NewEmergencyRecorded builds the payload for ev and its fanout results
func NewEmergencyRecorded(ev model.EmergencyEvent, results []model.FanoutResult) EmergencyRecorded {
	out := EmergencyRecorded{
		EventID:    ev.ID,
		AccountID:  ev.AccountID,
		Category:   ev.Category,
		Details:    ev.Details,
		RecordedAt: ev.CreatedAt,
		Results:    results,
	}
	if ev.Location != nil {
		out.Latitude = &ev.Location.Latitude
		out.Longitude = &ev.Location.Longitude
	}
	for _, r := range results {
		if r.Success {
			out.Delivered++
		}
	}
	return out
}

// Publisher emits domain events
type Publisher interface {
	PublishEmergency(ctx context.Context, ev EmergencyRecorded) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic, keyed by account id so an
// account's events stay ordered within one partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a synchronous writer for topic
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	logger.Info("kafka publisher initialized", logger.String("topic", topic))
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) PublishEmergency(ctx context.Context, ev EmergencyRecorded) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.AccountID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeEmergencyRecorded)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishEmergency(context.Context, EmergencyRecorded) error { return nil }
func (Nop) Close() error                                              { return nil }
