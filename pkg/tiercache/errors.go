package tiercache

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrEmptyKey is returned when a caller passes an empty cache key.
	// It is the only fault Get and Set ever raise; everything a backend
	// does wrong is absorbed and reflected in Stats.
	ErrEmptyKey = errors.New("cache key must not be empty")

	// ErrScalarCapacity reports that the scalar tier refused a write
	// because its quota is exhausted. The orchestrator reacts with an
	// eviction pass and a single retry.
	ErrScalarCapacity = errors.New("scalar store capacity exceeded")

	// ErrRelayTimeout reports that the offline relay did not answer within
	// its configured timeout. Treated as a miss on reads and a no-op on
	// writes.
	ErrRelayTimeout = errors.New("relay request timed out")

	// ErrRelayClosed is returned for requests issued after the relay
	// channel was closed.
	ErrRelayClosed = errors.New("relay channel closed")
)

// TierError wraps a backend fault with the tier and operation it came from.
// Tier errors never escape Get/Set/Clear; they only reach observers.
type TierError struct {
	Tier  string
	Op    string
	Cause error
}

func (e *TierError) Error() string {
	return fmt.Sprintf("%s tier %s failed: %v", e.Tier, e.Op, e.Cause)
}

func (e *TierError) Unwrap() error {
	return e.Cause
}
