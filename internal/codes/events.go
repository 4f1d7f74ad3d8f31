package codes

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCompleted   = "OrderCompleted"
	EventPurchaseRejected = "PurchaseRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderCompletedPayload struct {
	OrderID            string `json:"order_id"`
	ProductID          string `json:"product_id"`
	ConfirmationNumber string `json:"confirmation_number"`
	Email              string `json:"email"`
	Amount             int64  `json:"amount"`
	CodeQuantity       int    `json:"code_quantity"`
}

type PurchaseRejectedPayload struct {
	ProductID string     `json:"product_id"`
	Email     string     `json:"email"`
	Reason    string     `json:"reason"` // INSUFFICIENT_INVENTORY | PAYMENT_FAILED
	Cart      []CartLine `json:"cart,omitempty"`
}

const (
	RejectReasonInventory = "INSUFFICIENT_INVENTORY"
	RejectReasonPayment   = "PAYMENT_FAILED"
)

// Publisher is how the core hands events to the bus without knowing the
// bus. The kafka package provides the real one; tests capture in memory.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

func newEnvelope(producer, eventType, correlationID string, payload any) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err) // payload types above are always marshalable
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}
}

// UnwrapPayload decodes an envelope payload into its concrete type.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	err := json.Unmarshal(payload, &t)
	return t, err
}
