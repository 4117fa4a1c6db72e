package syncer

import "github.com/ashfame/gutenberg-collaborative-editing/document"

// ConflictType names the local/remote change combination that collided.
type ConflictType string

const (
	ConflictAddAdd       ConflictType = "add-add"
	ConflictUpdateUpdate ConflictType = "update-update"
	ConflictUpdateDelete ConflictType = "update-delete"
)

// Conflict records one detected and resolved collision. It is diagnostic
// output for telemetry, never raised as an error.
type Conflict struct {
	Type       ConflictType         `json:"type"`
	UnitID     string               `json:"unit_id"`
	Local      document.ContentUnit `json:"local"`
	Remote     document.ContentUnit `json:"remote"`
	Resolution Strategy             `json:"resolution"`
	DetectedAt int64                `json:"detected_at"`
}

func newConflict(typ ConflictType, local, remote document.ContentUnit, resolution Strategy) Conflict {
	return Conflict{
		Type:       typ,
		UnitID:     local.ID,
		Local:      local.Clone(),
		Remote:     remote.Clone(),
		Resolution: resolution,
		DetectedAt: document.NowMillis(),
	}
}

// mergeUnits is the structural merge: the remote payload wins wholesale,
// attributes are merged key-by-key with remote values overriding local
// ones, the unit id always stays local. The merged attribute map carries
// markers so downstream consumers can tell a merge happened.
//
// No text-level diff/patch of payloads is attempted; a smarter merge would
// be a separate, explicitly versioned strategy.
func mergeUnits(local, remote document.ContentUnit) document.ContentUnit {
	merged := document.ContentUnit{
		ID:      local.ID,
		Payload: remote.Payload,
	}
	attrs := make(map[string]interface{}, len(local.Attributes)+len(remote.Attributes)+2)
	for k, v := range local.Attributes {
		attrs[k] = v
	}
	for k, v := range remote.Attributes {
		attrs[k] = v
	}
	attrs["merged"] = true
	attrs["mergedAt"] = document.NowMillis()
	merged.Attributes = attrs
	return merged
}
