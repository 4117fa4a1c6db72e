package geometry

import (
	"sort"

	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// RemoteCaret is one rendered remote caret: who it belongs to and the
// rectangles to draw.
type RemoteCaret struct {
	User     document.User `json:"user"`
	ColorTag string        `json:"color_tag"`
	Rects    []Rect        `json:"rects"`
}

// Overlay holds the currently rendered remote carets, keyed by user id.
// Every update is a full clear-and-rebuild; partial redraws are not worth
// the bookkeeping at the handful-of-editors scale this targets.
type Overlay struct {
	carets map[string]RemoteCaret
}

// NewOverlay returns an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{carets: make(map[string]RemoteCaret)}
}

// Rebuild clears the overlay and renders every awareness entry except the
// local user's own. Entries whose caret cannot be mapped (stale indexes,
// unresolvable geometry) are skipped, not rendered as errors. The result is
// returned in stable user-id order for deterministic drawing.
func (o *Overlay) Rebuild(view View, entries map[string]document.AwarenessEntry, excludeUserID string) []RemoteCaret {
	o.carets = make(map[string]RemoteCaret, len(entries))
	for id, e := range entries {
		if id == excludeUserID {
			continue
		}
		rects := CaretRects(view, e.Caret)
		if rects == nil {
			continue
		}
		o.carets[id] = RemoteCaret{User: e.User, ColorTag: e.ColorTag, Rects: rects}
	}
	return o.Carets()
}

// Carets returns the rendered carets sorted by user id.
func (o *Overlay) Carets() []RemoteCaret {
	ids := make([]string, 0, len(o.carets))
	for id := range o.carets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]RemoteCaret, len(ids))
	for i, id := range ids {
		out[i] = o.carets[id]
	}
	return out
}
