// Package tracker compares successive editor snapshots of the content-unit
// list and emits the minimal set of typed operations between them.
package tracker

import (
	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// Tracker holds the previous snapshot and a buffer of operations not yet
// confirmed as delivered.
type Tracker struct {
	prev    []document.ContentUnit
	pending []Operation
	seq     uint64
}

// New returns a tracker with an empty baseline: the first UpdateFromEditor
// call reports every unit as inserted.
func New() *Tracker {
	return &Tracker{}
}

// Prime sets the baseline snapshot without emitting operations. Used when
// attaching to a document that is already synchronized.
func (t *Tracker) Prime(units []document.ContentUnit) {
	t.prev = document.CloneUnits(units)
}

// UpdateFromEditor diffs the new snapshot against the previous one by unit
// identity and returns the resulting operations, all timestamped at call
// time. The operations are also appended to the pending buffer.
//
// A unit that moved and changed content in the same pass emits a single
// Update: content takes precedence, index drift alone does not justify an
// extra operation.
func (t *Tracker) UpdateFromEditor(units []document.ContentUnit) []Operation {
	now := document.NowMillis()

	prevIndex := make(map[string]int, len(t.prev))
	for i, u := range t.prev {
		prevIndex[u.ID] = i
	}
	newIndex := make(map[string]int, len(units))
	for i, u := range units {
		newIndex[u.ID] = i
	}

	var ops []Operation

	// Deletions first, in previous-snapshot order.
	for i, u := range t.prev {
		if _, ok := newIndex[u.ID]; !ok {
			ops = append(ops, t.newOp(Operation{
				Type:  OpDelete,
				Index: i,
				Unit:  u.Clone(),
			}, now))
		}
	}

	for i, u := range units {
		pi, existed := prevIndex[u.ID]
		if !existed {
			ops = append(ops, t.newOp(Operation{
				Type:  OpInsert,
				Index: i,
				Unit:  u.Clone(),
			}, now))
			continue
		}
		prevUnit := t.prev[pi]
		contentChanged := !u.SameContent(prevUnit)
		switch {
		case contentChanged:
			prev := prevUnit.Clone()
			ops = append(ops, t.newOp(Operation{
				Type:         OpUpdate,
				Index:        i,
				Unit:         u.Clone(),
				PreviousUnit: &prev,
			}, now))
		case pi != i:
			ops = append(ops, t.newOp(Operation{
				Type:      OpMove,
				FromIndex: pi,
				ToIndex:   i,
				Index:     i,
				Unit:      u.Clone(),
			}, now))
		}
	}

	t.prev = document.CloneUnits(units)
	t.pending = append(t.pending, ops...)

	out := make([]Operation, len(ops))
	copy(out, ops)
	return out
}

func (t *Tracker) newOp(op Operation, ts int64) Operation {
	t.seq++
	op.Timestamp = ts
	op.Seq = t.seq
	return op
}

// PendingOperations returns a copy of the buffered operations. It is
// non-destructive.
func (t *Tracker) PendingOperations() []Operation {
	out := make([]Operation, len(t.pending))
	copy(out, t.pending)
	return out
}

// MarkOperationsSynced removes the given operations from the pending buffer,
// matched by identity (type, unit id, timestamp, sequence).
func (t *Tracker) MarkOperationsSynced(ops []Operation) {
	if len(ops) == 0 {
		return
	}
	synced := make(map[opKey]struct{}, len(ops))
	for _, op := range ops {
		synced[op.key()] = struct{}{}
	}
	remaining := t.pending[:0]
	for _, op := range t.pending {
		if _, ok := synced[op.key()]; !ok {
			remaining = append(remaining, op)
		}
	}
	t.pending = remaining
}
