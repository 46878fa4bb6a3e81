package tiercache

import (
	"context"
	"sync"
	"time"
)

// RelayOp identifies a control message sent to the offline relay.
type RelayOp string

const (
	RelayGet    RelayOp = "CACHE_GET"
	RelaySet    RelayOp = "CACHE_SET"
	RelayClear  RelayOp = "CACHE_CLEAR"
	RelayConfig RelayOp = "CACHE_CONFIG"
)

// DefaultRelayTimeout bounds every relay exchange.
const DefaultRelayTimeout = 100 * time.Millisecond

// RelayChannel reaches the out-of-process relay through message passing,
// never through shared memory. Every call is bounded by the relay's
// timeout; a timeout surfaces as ErrRelayTimeout, which the orchestrator
// treats as a miss on reads and a no-op on writes.
type RelayChannel interface {
	// Request sends one control message and waits for the reply.
	// A CACHE_GET miss is reported as (nil, nil).
	Request(ctx context.Context, op RelayOp, key string, data []byte) ([]byte, error)

	// Close tears down the channel. Requests issued afterwards fail with
	// ErrRelayClosed.
	Close() error
}

// RelayConfigPayload is the body of a CACHE_CONFIG message, pushed to the
// relay at orchestrator startup.
type RelayConfigPayload struct {
	DefaultTTL    time.Duration `json:"defaultTTL"`
	SchemaVersion string        `json:"schemaVersion"`
}

type relayRequest struct {
	op    RelayOp
	key   string
	data  []byte
	reply chan relayResponse
}

type relayResponse struct {
	data []byte
}

// ChannelRelay is an in-process RelayChannel reference implementation.
// A host goroutine owns the stored entries and is reached only over
// channels, so every exchange is serialized by the host itself. It stands
// in for a real out-of-process relay (a sidecar, a service worker) and is
// the singleton any number of Cache instances on one device talk to.
type ChannelRelay struct {
	timeout   time.Duration
	requests  chan relayRequest
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelRelay starts the relay host goroutine.
// A non-positive timeout falls back to DefaultRelayTimeout.
func NewChannelRelay(timeout time.Duration) *ChannelRelay {
	if timeout <= 0 {
		timeout = DefaultRelayTimeout
	}
	r := &ChannelRelay{
		timeout:  timeout,
		requests: make(chan relayRequest),
		done:     make(chan struct{}),
	}
	go r.serve()
	return r
}

func (r *ChannelRelay) serve() {
	entries := make(map[string][]byte)
	for {
		select {
		case <-r.done:
			return
		case req := <-r.requests:
			switch req.op {
			case RelayGet:
				req.reply <- relayResponse{data: entries[req.key]}
			case RelaySet:
				entries[req.key] = req.data
				req.reply <- relayResponse{}
			case RelayClear:
				entries = make(map[string][]byte)
				req.reply <- relayResponse{}
			default:
				// CACHE_CONFIG and unknown ops are acknowledged without
				// further effect; the in-process host keys no behavior
				// off the pushed config.
				req.reply <- relayResponse{}
			}
		}
	}
}

func (r *ChannelRelay) Request(ctx context.Context, op RelayOp, key string, data []byte) ([]byte, error) {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	req := relayRequest{op: op, key: key, data: data, reply: make(chan relayResponse, 1)}

	select {
	case r.requests <- req:
	case <-r.done:
		return nil, ErrRelayClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRelayTimeout
	}

	select {
	case resp := <-req.reply:
		return resp.data, nil
	case <-r.done:
		return nil, ErrRelayClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRelayTimeout
	}
}

func (r *ChannelRelay) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	return nil
}
