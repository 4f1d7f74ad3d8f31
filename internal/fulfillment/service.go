package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/codeshop/codeshop/internal/codes"
	"github.com/codeshop/codeshop/internal/redisx"
)

// Service consumes completed-order events and materializes a fast order
// lookup in Redis for the buyer-facing status endpoint of the storefront.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderCompleted is wired as the consumer handler.
func (s *Service) HandleOrderCompleted(ctx context.Context, m kafkago.Message) error {
	var env codes.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType != codes.EventOrderCompleted {
		return nil
	}

	// Dedup on event id; redelivery after a crash is expected.
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}

	payload, err := codes.UnwrapPayload[codes.OrderCompletedPayload](env.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}

	skey := fmt.Sprintf(redisx.KeyOrderStatus, payload.OrderID)
	if err := s.Redis.Set(ctx, skey, env.Payload, redisx.TTLOrderStatus).Err(); err != nil {
		return err
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	log.Printf("order completed: id=%s amount=%d codes=%d", payload.OrderID, payload.Amount, payload.CodeQuantity)
	return nil
}
