// Package syncer maintains the canonical local content-unit list with
// per-unit dirty flags, applies inbound remote operations against it and
// resolves conflicts per a configurable strategy.
package syncer

import (
	"github.com/ashfame/gutenberg-collaborative-editing/document"
	"github.com/ashfame/gutenberg-collaborative-editing/tracker"
)

// Strategy selects how conflicting local and remote changes are resolved.
type Strategy string

const (
	LocalWins  Strategy = "local-wins"
	RemoteWins Strategy = "remote-wins"
	Merge      Strategy = "merge"
)

// TrackedUnit is a content unit annotated with ephemeral synchronization
// flags. Flags are set by local-change marking or remote-operation
// application and cleared on successful synchronization.
type TrackedUnit struct {
	Unit            document.ContentUnit
	LocallyAdded    bool
	LocallyModified bool
	PendingDelete   bool
	LastSynced      *document.ContentUnit
	LastModified    int64
}

// ApplyResult is the outcome of applying a remote operation batch: the
// merged clean unit list (all tracking flags stripped) and any conflicts
// recorded along the way. Conflicts are diagnostics, not errors.
type ApplyResult struct {
	Merged    []document.ContentUnit
	Conflicts []Conflict
}

// Synchronizer holds the ordered tracked-unit list for one document.
// It is not safe for concurrent use; the editing model is a single
// cooperative loop per client.
type Synchronizer struct {
	units    []TrackedUnit
	strategy Strategy
}

// New returns a synchronizer using the given strategy; an empty strategy
// defaults to Merge.
func New(strategy Strategy) *Synchronizer {
	if strategy == "" {
		strategy = Merge
	}
	return &Synchronizer{strategy: strategy}
}

// Strategy returns the configured conflict strategy.
func (s *Synchronizer) Strategy() Strategy {
	return s.strategy
}

// Load seeds the canonical state from an already-synchronized snapshot.
// Every unit starts clean with its current content as the last synced
// version.
func (s *Synchronizer) Load(units []document.ContentUnit) {
	s.units = make([]TrackedUnit, len(units))
	for i, u := range units {
		synced := u.Clone()
		s.units[i] = TrackedUnit{Unit: u.Clone(), LastSynced: &synced}
	}
}

// Units returns the current unit list with tracking flags stripped.
// Units pending deletion are excluded.
func (s *Synchronizer) Units() []document.ContentUnit {
	out := make([]document.ContentUnit, 0, len(s.units))
	for _, tu := range s.units {
		if tu.PendingDelete {
			continue
		}
		out = append(out, tu.Unit.Clone())
	}
	return out
}

// MarkLocalChanges records editor-originated operations against the tracked
// list: inserts splice the new unit in as locally added, updates refresh the
// canonical content and flag the unit modified, deletes flag the unit for
// deletion, moves reposition it. Remote state (the last synced versions) is
// never touched here.
func (s *Synchronizer) MarkLocalChanges(ops []tracker.Operation) {
	for _, op := range ops {
		switch op.Type {
		case tracker.OpInsert:
			if s.find(op.Unit.ID) >= 0 {
				continue
			}
			s.splice(op.Index, TrackedUnit{
				Unit:         op.Unit.Clone(),
				LocallyAdded: true,
				LastModified: op.Timestamp,
			})
		case tracker.OpUpdate:
			i := s.find(op.Unit.ID)
			if i < 0 {
				continue
			}
			tu := &s.units[i]
			if tu.LastSynced == nil && op.PreviousUnit != nil {
				prev := op.PreviousUnit.Clone()
				tu.LastSynced = &prev
			}
			tu.Unit = op.Unit.Clone()
			if !tu.LocallyAdded {
				tu.LocallyModified = true
			}
			tu.LastModified = op.Timestamp
		case tracker.OpDelete:
			i := s.find(op.Unit.ID)
			if i < 0 {
				continue
			}
			if s.units[i].LocallyAdded {
				// Added and deleted before ever syncing: nothing to tell
				// the server about.
				s.remove(i)
				continue
			}
			s.units[i].PendingDelete = true
			s.units[i].LastModified = op.Timestamp
		case tracker.OpMove:
			i := s.find(op.Unit.ID)
			if i < 0 {
				continue
			}
			tu := s.units[i]
			s.remove(i)
			s.splice(op.ToIndex, tu)
		}
	}
}

// ApplyRemoteOperations applies inbound operations in timestamp order,
// detecting and resolving conflicts per the configured strategy. Units
// still flagged for deletion after processing are purged. The returned
// merged list carries no tracking state.
func (s *Synchronizer) ApplyRemoteOperations(remoteOps []tracker.Operation) ApplyResult {
	ops := make([]tracker.Operation, len(remoteOps))
	copy(ops, remoteOps)
	tracker.SortByTimestamp(ops)

	var conflicts []Conflict
	for _, op := range ops {
		switch op.Type {
		case tracker.OpInsert:
			conflicts = s.applyRemoteInsert(op, conflicts)
		case tracker.OpUpdate:
			conflicts = s.applyRemoteUpdate(op, conflicts)
		case tracker.OpDelete:
			conflicts = s.applyRemoteDelete(op, conflicts)
		case tracker.OpMove:
			i := s.find(op.Unit.ID)
			if i < 0 {
				continue
			}
			// Pure reordering has no conflict concept: last writer wins.
			tu := s.units[i]
			s.remove(i)
			s.splice(op.ToIndex, tu)
		}
	}

	s.purgePendingDeletes()
	return ApplyResult{Merged: s.Units(), Conflicts: conflicts}
}

func (s *Synchronizer) applyRemoteInsert(op tracker.Operation, conflicts []Conflict) []Conflict {
	i := s.find(op.Unit.ID)
	if i < 0 {
		synced := op.Unit.Clone()
		s.splice(op.Index, TrackedUnit{
			Unit:         op.Unit.Clone(),
			LastSynced:   &synced,
			LastModified: op.Timestamp,
		})
		return conflicts
	}

	tu := &s.units[i]
	if !tu.LocallyAdded {
		// Already known and synced; treat the stray insert as an update.
		return s.applyRemoteUpdate(op, conflicts)
	}

	// Both sides created a unit with the same id.
	conflicts = append(conflicts, newConflict(ConflictAddAdd, tu.Unit, op.Unit, s.strategy))
	switch s.strategy {
	case RemoteWins:
		synced := op.Unit.Clone()
		tu.Unit = op.Unit.Clone()
		tu.LocallyAdded = false
		tu.LastSynced = &synced
		tu.LastModified = op.Timestamp
	case Merge:
		merged := mergeUnits(tu.Unit, op.Unit)
		tu.Unit = merged
		tu.LastModified = op.Timestamp
	case LocalWins:
		// Local creation stands; conflict recorded above.
	}
	return conflicts
}

func (s *Synchronizer) applyRemoteUpdate(op tracker.Operation, conflicts []Conflict) []Conflict {
	i := s.find(op.Unit.ID)
	if i < 0 {
		// Unknown unit: identity lookup failed, fall back to the index hint.
		synced := op.Unit.Clone()
		s.splice(op.Index, TrackedUnit{
			Unit:         op.Unit.Clone(),
			LastSynced:   &synced,
			LastModified: op.Timestamp,
		})
		return conflicts
	}

	tu := &s.units[i]
	if tu.LocallyModified && !tu.PendingDelete {
		conflicts = append(conflicts, newConflict(ConflictUpdateUpdate, tu.Unit, op.Unit, s.strategy))
		switch s.strategy {
		case RemoteWins:
			synced := op.Unit.Clone()
			tu.Unit = op.Unit.Clone()
			tu.LocallyModified = false
			tu.LastSynced = &synced
			tu.LastModified = op.Timestamp
		case Merge:
			tu.Unit = mergeUnits(tu.Unit, op.Unit)
			tu.LastModified = op.Timestamp
			// Still locally modified: the merged result has local input
			// the server has not seen.
		case LocalWins:
			// Remote change dropped; conflict recorded above.
		}
		return conflicts
	}

	synced := op.Unit.Clone()
	tu.Unit = op.Unit.Clone()
	tu.LastSynced = &synced
	tu.LastModified = op.Timestamp
	return conflicts
}

func (s *Synchronizer) applyRemoteDelete(op tracker.Operation, conflicts []Conflict) []Conflict {
	i := s.find(op.Unit.ID)
	if i < 0 {
		return conflicts
	}
	tu := &s.units[i]
	if tu.LocallyModified && !tu.PendingDelete {
		conflicts = append(conflicts, newConflict(ConflictUpdateDelete, tu.Unit, op.Unit, s.strategy))
		if s.strategy == RemoteWins {
			s.remove(i)
		}
		// local-wins and merge keep the locally modified unit alive.
		return conflicts
	}
	s.remove(i)
	return conflicts
}

// LocalChangesToSync derives the outbound operation set from the current
// flags: added units become inserts, modified units updates carrying the
// last synced version, pending deletes become deletes. Each operation is
// timestamped at call time.
func (s *Synchronizer) LocalChangesToSync() []tracker.Operation {
	now := document.NowMillis()
	var seq uint64
	var ops []tracker.Operation
	for i, tu := range s.units {
		seq++
		op := tracker.Operation{Index: i, Unit: tu.Unit.Clone(), Timestamp: now, Seq: seq}
		switch {
		case tu.PendingDelete:
			op.Type = tracker.OpDelete
		case tu.LocallyAdded:
			op.Type = tracker.OpInsert
		case tu.LocallyModified:
			op.Type = tracker.OpUpdate
			if tu.LastSynced != nil {
				prev := tu.LastSynced.Clone()
				op.PreviousUnit = &prev
			}
		default:
			seq--
			continue
		}
		ops = append(ops, op)
	}
	return ops
}

// MarkAsSynced clears the added/modified flags, snapshots the current
// content as the last synced version and purges pending deletes. Calling it
// twice in a row is equivalent to calling it once.
func (s *Synchronizer) MarkAsSynced() {
	s.purgePendingDeletes()
	for i := range s.units {
		tu := &s.units[i]
		tu.LocallyAdded = false
		tu.LocallyModified = false
		synced := tu.Unit.Clone()
		tu.LastSynced = &synced
	}
}

// Tracked exposes the tracked state for inspection in tests and telemetry.
// The copy is deep: mutating it cannot reach the ledger.
func (s *Synchronizer) Tracked() []TrackedUnit {
	out := make([]TrackedUnit, len(s.units))
	for i, tu := range s.units {
		cp := tu
		cp.Unit = tu.Unit.Clone()
		if tu.LastSynced != nil {
			synced := tu.LastSynced.Clone()
			cp.LastSynced = &synced
		}
		out[i] = cp
	}
	return out
}

func (s *Synchronizer) find(id string) int {
	for i, tu := range s.units {
		if tu.Unit.ID == id {
			return i
		}
	}
	return -1
}

func (s *Synchronizer) splice(index int, tu TrackedUnit) {
	if index < 0 {
		index = 0
	}
	if index > len(s.units) {
		index = len(s.units)
	}
	s.units = append(s.units, TrackedUnit{})
	copy(s.units[index+1:], s.units[index:])
	s.units[index] = tu
}

func (s *Synchronizer) remove(index int) {
	s.units = append(s.units[:index], s.units[index+1:]...)
}

func (s *Synchronizer) purgePendingDeletes() {
	remaining := s.units[:0]
	for _, tu := range s.units {
		if !tu.PendingDelete {
			remaining = append(remaining, tu)
		}
	}
	s.units = remaining
}
