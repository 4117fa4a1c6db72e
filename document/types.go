// Package document holds the shared data model for collaborative editing:
// content units, snapshots, caret state and awareness entries.
package document

import (
	"reflect"
	"time"
)

// ContentUnit is one addressable, independently editable element of the
// document (paragraph, heading, etc.). ID is caller-assigned and stable
// across edits of the same logical unit.
type ContentUnit struct {
	ID         string                 `json:"id"`
	Payload    string                 `json:"payload"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Equal reports whether two units carry the same identity and content.
func (u ContentUnit) Equal(other ContentUnit) bool {
	return u.ID == other.ID &&
		u.Payload == other.Payload &&
		reflect.DeepEqual(u.Attributes, other.Attributes)
}

// SameContent reports whether payload and attributes match, ignoring identity.
func (u ContentUnit) SameContent(other ContentUnit) bool {
	return u.Payload == other.Payload && reflect.DeepEqual(u.Attributes, other.Attributes)
}

// Clone returns a deep copy. Callers must pass copies into the tracking
// layers, never live references, so "previous" and "current" snapshots
// cannot alias each other.
func (u ContentUnit) Clone() ContentUnit {
	c := ContentUnit{ID: u.ID, Payload: u.Payload}
	if u.Attributes != nil {
		c.Attributes = make(map[string]interface{}, len(u.Attributes))
		for k, v := range u.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}

// CloneUnits deep-copies a unit list.
func CloneUnits(units []ContentUnit) []ContentUnit {
	out := make([]ContentUnit, len(units))
	for i, u := range units {
		out[i] = u.Clone()
	}
	return out
}

// ContentSnapshot is one immutable, timestamped version of the full document.
// Every successful write produces a new snapshot with a freshly generated
// opaque SnapshotID and an advanced Timestamp.
type ContentSnapshot struct {
	Units      []ContentUnit `json:"units"`
	Title      string        `json:"title"`
	Timestamp  int64         `json:"timestamp"`
	AuthorID   string        `json:"author_id"`
	SnapshotID string        `json:"snapshot_id"`
}

// User identifies an editor as supplied by the host application.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// AwarenessEntry is the last-known presence state for one user within one
// document. Entries are refreshed on every caret broadcast and expire once
// the heartbeat age exceeds the activity timeout.
type AwarenessEntry struct {
	Caret             CaretState `json:"caret"`
	User              User       `json:"user"`
	LastCaretTime     int64      `json:"last_caret_time"`
	LastHeartbeatTime int64      `json:"last_heartbeat_time"`
	ColorTag          string     `json:"color_tag"`
}

// NowMillis is the single time base for snapshot and awareness timestamps.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
