package geometry

import (
	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// CaretRects maps a caret state onto overlay rectangles against the given
// layout snapshot. A collapsed caret yields one zero-width rect; selections
// yield one rect per covered line fragment. Malformed input (unit index out
// of range) yields nil so the caller's render step can skip that caret.
func CaretRects(view View, caret document.CaretState) []Rect {
	caret = caret.Normalize()
	switch caret.Kind {
	case document.CaretCollapsed:
		return collapsedRects(view, caret.UnitIndex, caret.OffsetStart)
	case document.CaretRangeInUnit:
		unit, ok := unitAt(view, caret.UnitIndex)
		if !ok {
			return nil
		}
		return rangeRects(unit, caret.OffsetStart, caret.OffsetEnd)
	case document.CaretRangeAcrossUnits:
		return acrossRects(view, caret)
	default:
		return nil
	}
}

func unitAt(view View, index int) (UnitBox, bool) {
	if index < 0 || index >= len(view.Units) {
		return UnitBox{}, false
	}
	return view.Units[index], true
}

func collapsedRects(view View, unitIndex, offset int) []Rect {
	unit, ok := unitAt(view, unitIndex)
	if !ok {
		return nil
	}
	r := caretRectInUnit(unit, offset)
	if r.IsZero() {
		// Empty rendered unit: fall back to the unit's own box.
		r = unit.Bounds
	}
	return []Rect{r}
}

// caretRectInUnit builds a zero-width rect at the character offset inside
// the fragment covering it. Offsets past the end clamp to the last
// fragment's end; a unit with no fragments resolves to its origin.
func caretRectInUnit(unit UnitBox, offset int) Rect {
	if offset < 0 {
		offset = 0
	}
	if len(unit.Fragments) == 0 {
		return Rect{X: unit.Bounds.X, Y: unit.Bounds.Y, Width: 0, Height: unit.Bounds.Height}
	}
	for _, f := range unit.Fragments {
		if offset >= f.Start && offset <= f.End {
			return Rect{X: advanceX(f, offset), Y: f.Box.Y, Width: 0, Height: f.Box.Height}
		}
	}
	last := unit.Fragments[len(unit.Fragments)-1]
	return Rect{X: advanceX(last, last.End), Y: last.Box.Y, Width: 0, Height: last.Box.Height}
}

// advanceX interpolates the horizontal position of a character offset
// within a fragment, assuming uniform advance across the run.
func advanceX(f Fragment, offset int) float64 {
	span := f.End - f.Start
	if span <= 0 {
		return f.Box.X
	}
	if offset < f.Start {
		offset = f.Start
	}
	if offset > f.End {
		offset = f.End
	}
	return f.Box.X + f.Box.Width*float64(offset-f.Start)/float64(span)
}

// rangeRects returns one rect per fragment overlapped by [start, end),
// trimmed to the selected characters. Multi-line selections produce
// multiple rects, mirroring how a browser reports client rects.
func rangeRects(unit UnitBox, start, end int) []Rect {
	if start > end {
		start, end = end, start
	}
	if len(unit.Fragments) == 0 {
		if unit.Bounds.IsZero() {
			return nil
		}
		return []Rect{unit.Bounds}
	}
	var rects []Rect
	for _, f := range unit.Fragments {
		lo := max(start, f.Start)
		hi := min(end, f.End)
		if lo >= hi && !(lo == hi && start == end) {
			continue
		}
		x0 := advanceX(f, lo)
		x1 := advanceX(f, hi)
		rects = append(rects, Rect{X: x0, Y: f.Box.Y, Width: x1 - x0, Height: f.Box.Height})
	}
	return rects
}

// fullUnitRects is the selection geometry of a fully-enclosed unit.
func fullUnitRects(unit UnitBox) []Rect {
	if len(unit.Fragments) == 0 {
		if unit.Bounds.IsZero() {
			return nil
		}
		return []Rect{unit.Bounds}
	}
	rects := make([]Rect, len(unit.Fragments))
	for i, f := range unit.Fragments {
		rects[i] = f.Box
	}
	return rects
}

func acrossRects(view View, caret document.CaretState) []Rect {
	start, ok := unitAt(view, caret.UnitIndex)
	if !ok {
		return nil
	}
	end, ok := unitAt(view, caret.UnitIndexEnd)
	if !ok {
		return nil
	}

	rects := rangeRects(start, caret.OffsetStart, start.Length)
	for i := caret.UnitIndex + 1; i < caret.UnitIndexEnd; i++ {
		rects = append(rects, fullUnitRects(view.Units[i])...)
	}
	rects = append(rects, rangeRects(end, 0, caret.OffsetEnd)...)
	if len(rects) == 0 {
		return nil
	}
	return rects
}
