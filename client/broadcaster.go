package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// DefaultBroadcastInterval is the caret broadcast cadence.
const DefaultBroadcastInterval = time.Second

// DefaultKeepaliveInterval is how long an unchanged caret may go unsent
// before it is re-pushed anyway. Each push refreshes the server-side
// heartbeat, so this must stay well under the activity timeout or an idle
// user would decay out of everyone's presence view while still connected.
const DefaultKeepaliveInterval = time.Minute

// CaretProvider reads the current local caret from the host editor. A nil
// result means no caret is available right now (focus elsewhere).
type CaretProvider func() *document.CaretState

// Broadcaster pushes the local caret state at a fixed cadence, but only
// when it actually differs field-for-field from the last value sent or the
// keepalive interval has elapsed since the last successful push. That
// bounds the write volume regardless of how often the editor fires
// selection events while keeping the heartbeat alive for an idle caret.
type Broadcaster struct {
	client    *Client
	user      document.User
	colorTag  string
	caret     CaretProvider
	interval  time.Duration
	keepalive time.Duration
	log       zerolog.Logger

	last       *document.CaretState
	lastPushAt time.Time
}

// NewBroadcaster wires a broadcaster to an editor-supplied caret provider.
func NewBroadcaster(c *Client, user document.User, colorTag string, caret CaretProvider) *Broadcaster {
	return &Broadcaster{
		client:    c,
		user:      user,
		colorTag:  colorTag,
		caret:     caret,
		interval:  DefaultBroadcastInterval,
		keepalive: DefaultKeepaliveInterval,
		log:       c.log.With().Str("component", "caret-broadcaster").Logger(),
	}
}

// Run broadcasts until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

// tick performs one cadence step; split out so tests can drive it without
// waiting on the real ticker.
func (b *Broadcaster) tick(ctx context.Context) {
	cur := b.caret()
	if cur == nil {
		return
	}
	norm := cur.Normalize()
	if b.last != nil && norm.Equal(*b.last) && time.Since(b.lastPushAt) < b.keepalive {
		return
	}
	if err := b.client.PushCaret(ctx, norm, b.user, b.colorTag); err != nil {
		// Leave last unchanged so the next tick retries the same state.
		b.log.Warn().Err(err).Msg("caret broadcast failed")
		return
	}
	b.last = &norm
	b.lastPushAt = time.Now()
}
