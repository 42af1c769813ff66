package models

import "fmt"

// ValidationError names the first envelope field that failed a check.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid envelope %s: %s", e.Field, e.Message)
}

type envelopeRule struct {
	field   string
	message string
	broken  func(*Envelope) bool
}

var envelopeRules = []envelopeRule{
	{"id", "is required", func(e *Envelope) bool { return e.ID == "" }},
	{"type", "is required", func(e *Envelope) bool { return e.Type == "" }},
	{"timestamp", "is required", func(e *Envelope) bool { return e.Timestamp.IsZero() }},
	{"payload", "must not be null", func(e *Envelope) bool { return e.Payload == nil }},
}

// ValidateEnvelope reports envelopes that no handler can act on. The consumer
// parks them on the DLQ without retrying.
func ValidateEnvelope(msg *Envelope) error {
	if msg == nil {
		return &ValidationError{Field: "envelope", Message: "is nil"}
	}
	for _, rule := range envelopeRules {
		if rule.broken(msg) {
			return &ValidationError{Field: rule.field, Message: rule.message}
		}
	}
	return nil
}
