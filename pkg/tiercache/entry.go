package tiercache

import (
	"encoding/json"
	"strings"
	"time"
)

// Entry is the envelope written to every tier for a cached value.
// The envelope, not the bare value, is what gets serialized, so every tier
// can judge expiration and schema compatibility on its own copy.
type Entry struct {
	Data          json.RawMessage `json:"data,omitempty"`
	WrittenAt     time.Time       `json:"writtenAt"`
	TTL           time.Duration   `json:"ttl"`
	SchemaVersion string          `json:"schemaVersion"`
	Scoped        bool            `json:"scoped"`

	// Value holds the decoded form for the in-process tier. It is never
	// serialized; a value that cannot be marshalled still lives here, which
	// is what keeps the memory tier working when the persistent tiers have
	// to be skipped.
	Value any `json:"-"`
}

// Expired reports whether the entry's TTL has elapsed at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.Sub(e.WrittenAt) > e.TTL
}

// Remaining returns the unexpired portion of the entry's TTL at now.
// It can be negative for an already-expired entry.
func (e *Entry) Remaining(now time.Time) time.Duration {
	return e.TTL - now.Sub(e.WrittenAt)
}

func encodeEntry(e *Entry) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEntry(data []byte) (*Entry, error) {
	e := &Entry{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	return e, nil
}

// storageKeyPrefix distinguishes cache entries from unrelated data sharing
// the same backing store.
const storageKeyPrefix = "cache_"

// syncSignalKey is the well-known control key used as the broadcast side
// channel. It never holds an Entry envelope; sweeps and eviction passes
// skip it.
const syncSignalKey = "cache_sync_signal"

// namespacedKey folds the principal into the logical key so two principals
// never observe each other's entries under the same logical key.
func namespacedKey(key, principal string) string {
	if principal == "" {
		return key
	}
	return principal + "_" + key
}

func storageKey(key string) string {
	return storageKeyPrefix + key
}

// DefaultCriticalPrefixes mark the logical keys that must stay reachable
// through the offline relay.
var DefaultCriticalPrefixes = []string{"identity_", "auth_", "content_", "project_"}

func matchesAny(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
