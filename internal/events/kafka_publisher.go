package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	timelinedomain "github.com/smallbiznis/sanad/internal/timeline/domain"
	"github.com/smallbiznis/sanad/pkg/masking"
	"github.com/smallbiznis/sanad/pkg/telemetry/correlation"
)

const publishTimeout = 5 * time.Second

// Contact details never leave the service in clear text.
var maskedMetadataKeys = []string{"phone", "recipient"}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher streams committed timeline events keyed by claim id, so
// one claim's events stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}, nil
}

type timelineMessage struct {
	ID        string         `json:"id"`
	ClaimID   string         `json:"claim_id"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	ActorType string         `json:"actor_type"`
	ActorID   string         `json:"actor_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (p *KafkaPublisher) PublishTimelineEvent(ctx context.Context, event timelinedomain.Event) error {
	payload, err := json.Marshal(timelineMessage{
		ID:        event.ID.String(),
		ClaimID:   event.ClaimID.String(),
		Type:      string(event.Type),
		Message:   event.Message,
		ActorType: event.ActorType,
		ActorID:   event.ActorID,
		Metadata:  masking.MaskFields(event.Metadata, maskedMetadataKeys...),
		CreatedAt: event.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode timeline event: %w", err)
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte(event.Type)}}
	for k, v := range correlation.Metadata(ctx) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.ClaimID.String()),
		Value:   payload,
		Headers: headers,
		Time:    event.CreatedAt.UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
