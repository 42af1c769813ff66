package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the wire format of every Kafka message the services exchange.
type Envelope struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  Metadata               `json:"metadata"`
}

type Metadata struct {
	TraceID    string          `json:"trace_id,omitempty"`
	OwnerID    string          `json:"owner_id,omitempty"`
	CompanyID  string          `json:"company_id,omitempty"`
	DeadLetter *DeadLetterInfo `json:"dead_letter,omitempty"`
}

// DeadLetterInfo is attached when a message is parked on the DLQ.
type DeadLetterInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	FailedAt    time.Time `json:"failed_at"`
}

// DecodePayload converts the generic payload map into v.
func (e *Envelope) DecodePayload(v interface{}) error {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// PayloadFrom converts a typed payload into the map form carried on the wire.
func PayloadFrom(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
