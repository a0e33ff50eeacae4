// Package protocol defines the message envelope and domain entities that
// flow across the message bus between DataCollection, TechnicalAnalysis,
// Strategy, RiskManager, and Execution.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// CurrentSchemaVersion is the schema version this build produces. Consumers
// reject a message whose major component exceeds their own.
const CurrentSchemaVersion = "1.0.0"

// Envelope wraps every payload published on the bus with routing and
// versioning metadata, independent of the payload's own shape.
type Envelope struct {
	MessageID     uuid.UUID       `json:"messageId"`
	SourceAgent   string          `json:"sourceAgent"`
	Topic         string          `json:"topic"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schemaVersion"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and stamps the envelope with a fresh message
// ID, the current time, and CurrentSchemaVersion.
func NewEnvelope(sourceAgent, topic string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Envelope{
		MessageID:     uuid.New(),
		SourceAgent:   sourceAgent,
		Topic:         topic,
		Timestamp:     time.Now(),
		SchemaVersion: CurrentSchemaVersion,
		Payload:       data,
	}, nil
}

// Decode unmarshals the envelope's payload into v.
func (e *Envelope) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Marshal serializes the envelope itself (routing metadata plus the
// already-encoded payload) for transport over the bus.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope parses a wire-format envelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &e, nil
}

// CheckCompatible reports whether a message produced at SchemaVersion
// schemaVersion can be understood by code built against
// consumerMajorVersion. A message whose major version exceeds the consumer's
// own is rejected; minor/patch differences (additive, optional fields) are
// always tolerated, which is the forward-compatible behavior "ignore unknown
// optional fields" requires in practice.
func CheckCompatible(schemaVersion string, consumerMajorVersion uint64) error {
	v, err := semver.NewVersion(schemaVersion)
	if err != nil {
		return fmt.Errorf("invalid schemaVersion %q: %w", schemaVersion, err)
	}
	if v.Major() > consumerMajorVersion {
		return fmt.Errorf("%w: message schema %s is newer than consumer major version %d", ErrSchemaIncompatible, schemaVersion, consumerMajorVersion)
	}
	return nil
}
