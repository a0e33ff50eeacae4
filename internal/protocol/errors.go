package protocol

import "errors"

// ErrSchemaIncompatible is returned by CheckCompatible when a message's
// major schema version exceeds what the consumer understands.
var ErrSchemaIncompatible = errors.New("incompatible schema version")

// ErrInvariantViolation marks a condition that should be structurally
// impossible (e.g. a forward-only status downgrade). Callers that detect
// one should wrap it with context and let the agent framework crash the
// task rather than attempt to recover state it can no longer trust.
var ErrInvariantViolation = errors.New("invariant violation")
