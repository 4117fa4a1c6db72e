package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
	"github.com/ashfame/gutenberg-collaborative-editing/document"
	"github.com/ashfame/gutenberg-collaborative-editing/tracker"
)

// DefaultQuietPeriod is how long the pusher waits after the last local
// change before sending, so bursts of typing collapse into one write.
const DefaultQuietPeriod = 2 * time.Second

const pushTimeout = 10 * time.Second

// LockCheck reports whether the local user currently holds the
// single-writer lock. Supplied by the host's locking layer.
type LockCheck func() bool

// ResultFunc receives the outcome of each fired push. ErrLockRequired
// means the caller lost (or never had) the write lock and should drop to
// read-only; it is not retried.
type ResultFunc func(snapshotID string, err error)

// Pusher debounces content pushes. Queue calls replace or extend the
// pending payload and re-arm the quiet-period timer; when the timer fires
// the payload is sent if the lock is held.
//
// The debounce does not serialize against an in-flight push: if the timer
// fires again before the previous send returned, both are in flight and
// the server's snapshot timestamp ordering arbitrates.
type Pusher struct {
	client    *Client
	holdsLock LockCheck
	onResult  ResultFunc
	quiet     time.Duration
	log       zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *api.PushContentRequest
	closed  bool
}

// NewPusher builds a pusher; onResult may be nil.
func NewPusher(c *Client, holdsLock LockCheck, onResult ResultFunc) *Pusher {
	return &Pusher{
		client:    c,
		holdsLock: holdsLock,
		onResult:  onResult,
		quiet:     DefaultQuietPeriod,
		log:       c.log.With().Str("component", "content-pusher").Logger(),
	}
}

// QueueFull schedules a full-document replace. It supersedes any pending
// payload.
func (p *Pusher) QueueFull(units []document.ContentUnit) {
	p.queue(&api.PushContentRequest{
		Type:  api.PushFull,
		Units: document.CloneUnits(units),
	})
}

// QueueOperations schedules an operation batch keyed to the content-unit
// index the caret is in. Successive batches queued within one quiet period
// are concatenated; a pending full replace supersedes them instead.
func (p *Pusher) QueueOperations(ops []tracker.Operation, caretUnitIndex int) {
	p.mu.Lock()
	if p.pending != nil && p.pending.Type == api.PushOps {
		p.pending.Operations = append(p.pending.Operations, ops...)
		p.pending.CaretUnitIndex = caretUnitIndex
		p.rearmLocked()
		p.mu.Unlock()
		return
	}
	if p.pending != nil && p.pending.Type == api.PushFull {
		// A full replace already covers everything the ops describe.
		p.rearmLocked()
		p.mu.Unlock()
		return
	}
	batch := make([]tracker.Operation, len(ops))
	copy(batch, ops)
	p.pending = &api.PushContentRequest{
		Type:           api.PushOps,
		Operations:     batch,
		CaretUnitIndex: caretUnitIndex,
	}
	p.rearmLocked()
	p.mu.Unlock()
}

// QueueTitle schedules a title-only write.
func (p *Pusher) QueueTitle(title string) {
	p.queue(&api.PushContentRequest{Type: api.PushTitle, Title: title})
}

// Flush sends any pending payload immediately instead of waiting out the
// quiet period.
func (p *Pusher) Flush() {
	p.fire()
}

// Close stops the timer; a pending payload is dropped.
func (p *Pusher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
	}
	p.pending = nil
}

func (p *Pusher) queue(req *api.PushContentRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = req
	p.rearmLocked()
}

func (p *Pusher) rearmLocked() {
	if p.closed {
		return
	}
	if p.timer == nil {
		p.timer = time.AfterFunc(p.quiet, p.fire)
		return
	}
	p.timer.Stop()
	p.timer.Reset(p.quiet)
}

func (p *Pusher) fire() {
	p.mu.Lock()
	req := p.pending
	p.pending = nil
	p.mu.Unlock()
	if req == nil {
		return
	}

	if !p.holdsLock() {
		p.log.Debug().Msg("content push skipped: write lock not held")
		p.report("", api.ErrLockRequired)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	snapshotID, err := p.client.PushContent(ctx, *req)
	if err != nil {
		p.log.Warn().Err(err).Msg("content push failed")
	}
	p.report(snapshotID, err)
}

func (p *Pusher) report(snapshotID string, err error) {
	if p.onResult != nil {
		p.onResult(snapshotID, err)
	}
}
