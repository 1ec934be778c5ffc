package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried in Envelope.Type.
const (
	EventObligationDue   = "obligation.due"
	EventImportCompleted = "import.completed"
)

// Envelope wraps every event published on the ledger exchange.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload under the given event type.
func NewEnvelope(eventType string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   raw,
	}, nil
}

// ToJSON converts the envelope to JSON bytes
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Decode unmarshals the payload into v.
func (e *Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// EnvelopeFromJSON parses an envelope and rejects ones without a type.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, fmt.Errorf("envelope without type")
	}
	return &env, nil
}
