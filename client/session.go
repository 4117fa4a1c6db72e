package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// State is the poll session lifecycle. DataReceived, Timeout and Error are
// transitions inside the Polling state, not resting states.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StatePolling
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePolling:
		return "polling"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Handlers receive what a resolved poll delivered. Both are optional and
// are invoked from the session goroutine.
type Handlers struct {
	OnContent   func(*document.ContentSnapshot)
	OnAwareness func(map[string]document.AwarenessEntry)
}

const (
	// defaultPollBackoff is the fixed pause between poll iterations,
	// applied uniformly after success, no-update and error outcomes.
	defaultPollBackoff = 500 * time.Millisecond

	// defaultPollTimeout bounds one poll round-trip; it must exceed the
	// server's wait window or healthy polls would be cut short.
	defaultPollTimeout = 45 * time.Second
)

// Session runs the continuous long-poll loop for one document. Each
// iteration carries the last-seen content timestamp and the last-known
// awareness view so the server can diff against them.
type Session struct {
	client      *Client
	handlers    Handlers
	log         zerolog.Logger
	backoff     time.Duration
	pollTimeout time.Duration

	state   atomic.Int32
	stopped atomic.Bool

	mu        sync.Mutex
	since     int64
	awareness map[string]document.AwarenessEntry
}

// NewSession builds an idle session; Run starts polling.
func NewSession(c *Client, handlers Handlers) *Session {
	return &Session{
		client:      c,
		handlers:    handlers,
		log:         c.log.With().Str("component", "poll-session").Logger(),
		backoff:     defaultPollBackoff,
		pollTimeout: defaultPollTimeout,
		awareness:   map[string]document.AwarenessEntry{},
	}
}

// Run polls until the context is cancelled or Disconnect is called. The
// stop flag is checked before each iteration; an in-flight poll is allowed
// to complete or time out naturally rather than being aborted.
func (s *Session) Run(ctx context.Context) {
	s.state.Store(int32(StateConnecting))
	defer s.state.Store(int32(StateDisconnected))

	for {
		if s.stopped.Load() || ctx.Err() != nil {
			return
		}
		s.state.Store(int32(StatePolling))

		pollCtx, cancel := context.WithTimeout(ctx, s.pollTimeout)
		resp, err := s.client.Poll(pollCtx, s.LastTimestamp(), s.AwarenessView())
		cancel()

		switch {
		case err != nil:
			// Transient by assumption: log and keep polling.
			s.log.Warn().Err(err).Msg("poll failed")
		case resp == nil:
			// Wait window elapsed with no update.
		default:
			s.consume(resp)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.backoff):
		}
	}
}

// consume records what a resolved poll delivered and hands it to the
// handlers: content advances the last-seen timestamp, awareness replaces
// the last-known view wholesale.
func (s *Session) consume(resp *api.PollResponse) {
	if resp.Modified && resp.Content != nil {
		s.mu.Lock()
		if resp.Content.Timestamp > s.since {
			s.since = resp.Content.Timestamp
		}
		s.mu.Unlock()
		if s.handlers.OnContent != nil {
			s.handlers.OnContent(resp.Content)
		}
	}
	if resp.Awareness != nil {
		s.mu.Lock()
		s.awareness = resp.Awareness
		s.mu.Unlock()
		if s.handlers.OnAwareness != nil {
			s.handlers.OnAwareness(resp.Awareness)
		}
	}
}

// Disconnect stops the loop before its next iteration.
func (s *Session) Disconnect() {
	s.stopped.Store(true)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// LastTimestamp is the content timestamp of the newest snapshot consumed.
func (s *Session) LastTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.since
}

// AwarenessView is the awareness map as of the last resolved poll.
func (s *Session) AwarenessView() map[string]document.AwarenessEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]document.AwarenessEntry, len(s.awareness))
	for k, v := range s.awareness {
		out[k] = v
	}
	return out
}
