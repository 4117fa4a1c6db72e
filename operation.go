package main

import (
	"github.com/ashfame/gutenberg-collaborative-editing/document"
	"github.com/ashfame/gutenberg-collaborative-editing/tracker"
)

// applyOperations mutates a copy of the unit list with an inbound operation
// batch, oldest first. The lock holder is the only writer, so there is no
// conflict handling here: unit identity is authoritative for matching, the
// index fields are positional hints clamped to the current list.
func applyOperations(units []document.ContentUnit, ops []tracker.Operation) []document.ContentUnit {
	out := document.CloneUnits(units)
	batch := make([]tracker.Operation, len(ops))
	copy(batch, ops)
	tracker.SortByTimestamp(batch)

	for _, op := range batch {
		switch op.Type {
		case tracker.OpInsert:
			if indexOf(out, op.Unit.ID) >= 0 {
				continue
			}
			out = spliceUnit(out, op.Index, op.Unit.Clone())
		case tracker.OpUpdate:
			if i := indexOf(out, op.Unit.ID); i >= 0 {
				out[i] = op.Unit.Clone()
			} else {
				out = spliceUnit(out, op.Index, op.Unit.Clone())
			}
		case tracker.OpDelete:
			if i := indexOf(out, op.Unit.ID); i >= 0 {
				out = append(out[:i], out[i+1:]...)
			}
		case tracker.OpMove:
			i := indexOf(out, op.Unit.ID)
			if i < 0 {
				continue
			}
			u := out[i]
			out = append(out[:i], out[i+1:]...)
			out = spliceUnit(out, op.ToIndex, u)
		}
	}
	return out
}

func indexOf(units []document.ContentUnit, id string) int {
	for i, u := range units {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func spliceUnit(units []document.ContentUnit, index int, u document.ContentUnit) []document.ContentUnit {
	if index < 0 {
		index = 0
	}
	if index > len(units) {
		index = len(units)
	}
	units = append(units, document.ContentUnit{})
	copy(units[index+1:], units[index:])
	units[index] = u
	return units
}
