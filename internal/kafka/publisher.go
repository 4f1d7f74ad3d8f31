package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/codeshop/codeshop/internal/codes"
)

// EnvelopePublisher adapts per-topic producers to the core's Publisher
// seam, routing envelopes by event type.
type EnvelopePublisher struct {
	producers map[string]*Producer // event type -> producer
}

func NewEnvelopePublisher(completed, rejected *Producer) *EnvelopePublisher {
	return &EnvelopePublisher{producers: map[string]*Producer{
		codes.EventOrderCompleted:   completed,
		codes.EventPurchaseRejected: rejected,
	}}
}

func (p *EnvelopePublisher) Publish(ctx context.Context, env codes.Envelope) error {
	prod, ok := p.producers[env.EventType]
	if !ok {
		return fmt.Errorf("no producer for event type %q", env.EventType)
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	key := env.CorrelationID
	if key == "" {
		key = env.EventID
	}
	prod.Publish(codes.PartitionKey(key), value,
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}
