package document

// CaretKind discriminates the three caret shapes.
type CaretKind string

const (
	CaretCollapsed        CaretKind = "collapsed"
	CaretRangeInUnit      CaretKind = "range"
	CaretRangeAcrossUnits CaretKind = "range_across"
)

// CaretState describes a cursor position or text selection in terms of
// content-unit index and character offset, independent of rendering.
//
// Field usage by kind:
//
//	collapsed:     UnitIndex, OffsetStart (the caret offset)
//	range:         UnitIndex, OffsetStart, OffsetEnd
//	range_across:  UnitIndex (start), UnitIndexEnd, OffsetStart, OffsetEnd
//
// The zero value is not a valid caret; use the constructors.
type CaretState struct {
	Kind         CaretKind `json:"kind"`
	UnitIndex    int       `json:"unit_index"`
	UnitIndexEnd int       `json:"unit_index_end,omitempty"`
	OffsetStart  int       `json:"offset_start"`
	OffsetEnd    int       `json:"offset_end,omitempty"`
}

// Collapsed returns a caret at a single position.
func Collapsed(unitIndex, offset int) CaretState {
	return CaretState{Kind: CaretCollapsed, UnitIndex: unitIndex, OffsetStart: offset}
}

// RangeInUnit returns a selection contained in one unit.
func RangeInUnit(unitIndex, offsetStart, offsetEnd int) CaretState {
	return CaretState{Kind: CaretRangeInUnit, UnitIndex: unitIndex, OffsetStart: offsetStart, OffsetEnd: offsetEnd}
}

// RangeAcrossUnits returns a selection spanning multiple units.
func RangeAcrossUnits(unitIndexStart, unitIndexEnd, offsetStart, offsetEnd int) CaretState {
	return CaretState{
		Kind:         CaretRangeAcrossUnits,
		UnitIndex:    unitIndexStart,
		UnitIndexEnd: unitIndexEnd,
		OffsetStart:  offsetStart,
		OffsetEnd:    offsetEnd,
	}
}

// Normalize returns the caret with start preceding or equal to end in
// document order. Out-of-order input is swapped, never rejected.
func (c CaretState) Normalize() CaretState {
	switch c.Kind {
	case CaretRangeInUnit:
		if c.OffsetStart > c.OffsetEnd {
			c.OffsetStart, c.OffsetEnd = c.OffsetEnd, c.OffsetStart
		}
	case CaretRangeAcrossUnits:
		if c.UnitIndex > c.UnitIndexEnd {
			c.UnitIndex, c.UnitIndexEnd = c.UnitIndexEnd, c.UnitIndex
			c.OffsetStart, c.OffsetEnd = c.OffsetEnd, c.OffsetStart
		} else if c.UnitIndex == c.UnitIndexEnd && c.OffsetStart > c.OffsetEnd {
			c.OffsetStart, c.OffsetEnd = c.OffsetEnd, c.OffsetStart
		}
	}
	return c
}

// Equal is a field-for-field comparison; the broadcaster uses it to decide
// whether the caret actually changed since the last push.
func (c CaretState) Equal(other CaretState) bool {
	return c == other
}
