// Package geometry translates abstract caret and selection state into
// on-screen rectangles for rendering remote carets. It is pure: the host
// renderer supplies a layout snapshot, no DOM is touched here.
package geometry

// Rect is an axis-aligned box in overlay-container coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether the rect is fully degenerate (all-zero), which is
// how an empty rendered unit shows up.
func (r Rect) IsZero() bool {
	return r.X == 0 && r.Y == 0 && r.Width == 0 && r.Height == 0
}

// Fragment is one laid-out run of a unit's text: the characters
// [Start, End) rendered inside Box. A unit wrapped over three lines
// reports three fragments.
type Fragment struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	Box   Rect `json:"box"`
}

// UnitBox is the rendered geometry of one content unit: its overall bounds,
// total text length and per-line fragments as reported by the host
// renderer. An empty unit has Length 0 and no fragments.
type UnitBox struct {
	ID        string     `json:"id"`
	Bounds    Rect       `json:"bounds"`
	Length    int        `json:"length"`
	Fragments []Fragment `json:"fragments"`
}

// View is a layout snapshot of the whole document, units in document order.
type View struct {
	Units []UnitBox `json:"units"`
}
