// Package api defines the wire types and error taxonomy shared by the
// server handlers and the client transport.
package api

import (
	"github.com/ashfame/gutenberg-collaborative-editing/document"
	"github.com/ashfame/gutenberg-collaborative-editing/tracker"
)

// Content push payload tags.
const (
	PushFull  = "full"
	PushOps   = "ops"
	PushTitle = "title"
)

// PushContentRequest carries one content write. Exactly one of Units,
// Operations or Title is meaningful, selected by Type. CaretUnitIndex keys
// an operation batch to the content-unit index the author's caret was in.
type PushContentRequest struct {
	Type           string                 `json:"type"`
	Units          []document.ContentUnit `json:"units,omitempty"`
	Operations     []tracker.Operation    `json:"operations,omitempty"`
	Title          string                 `json:"title,omitempty"`
	CaretUnitIndex int                    `json:"caret_unit_index,omitempty"`
}

// PushContentResponse returns the freshly generated snapshot identifier.
type PushContentResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

// PushCaretRequest broadcasts the caller's caret state. Idempotent; always
// accepted for anyone who may view the document.
type PushCaretRequest struct {
	Caret    document.CaretState `json:"caret"`
	User     document.User       `json:"user"`
	ColorTag string              `json:"color_tag,omitempty"`
}

// PollRequest opens one long-poll iteration: the last-seen content
// timestamp and the caller's full last-known awareness view, which the
// server diffs against its own.
type PollRequest struct {
	Since     int64                              `json:"since"`
	Awareness map[string]document.AwarenessEntry `json:"awareness"`
}

// PollResponse is returned when the poll resolves with data. Modified
// signals newer content; Awareness is always the server's current filtered
// view. A poll that saw nothing within the wait window returns 204 instead.
type PollResponse struct {
	Modified  bool                               `json:"modified"`
	Content   *document.ContentSnapshot          `json:"content,omitempty"`
	Awareness map[string]document.AwarenessEntry `json:"awareness"`
}

// CreateDocumentRequest registers a document with the collaboration layer.
type CreateDocumentRequest struct {
	Name   string `json:"name"`
	Author string `json:"author"`
}

// Document is the stored per-document metadata. The mapstructure tags match
// the redis hash fields.
type Document struct {
	ID       string `json:"id" mapstructure:"id"`
	Name     string `json:"name" mapstructure:"name"`
	Author   string `json:"author" mapstructure:"author"`
	LockUser string `json:"lock_user,omitempty" mapstructure:"lock_user"`
}
