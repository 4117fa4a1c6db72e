package tracker

import (
	"sort"

	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// OpType tags the kind of a change operation.
type OpType string

const (
	OpInsert OpType = "insert"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
	OpMove   OpType = "move"
)

// Operation is one typed change to the content-unit list. Index fields are
// positional hints against the list state at application time; the unit ID
// is authoritative for matching.
//
// Timestamp is epoch milliseconds; Seq is a per-tracker monotonic counter
// that keeps ordering and identity stable when several operations land in
// the same millisecond.
type Operation struct {
	Type         OpType                `json:"type"`
	Index        int                   `json:"index"`
	FromIndex    int                   `json:"from_index,omitempty"`
	ToIndex      int                   `json:"to_index,omitempty"`
	Unit         document.ContentUnit  `json:"unit"`
	PreviousUnit *document.ContentUnit `json:"previous_unit,omitempty"`
	Timestamp    int64                 `json:"timestamp"`
	Seq          uint64                `json:"seq,omitempty"`
}

type opKey struct {
	typ OpType
	id  string
	ts  int64
	seq uint64
}

func (op Operation) key() opKey {
	return opKey{typ: op.Type, id: op.Unit.ID, ts: op.Timestamp, seq: op.Seq}
}

// SortByTimestamp orders operations ascending by timestamp, sequence as
// tie-break. Remote operations must be applied in this order.
func SortByTimestamp(ops []Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Timestamp != ops[j].Timestamp {
			return ops[i].Timestamp < ops[j].Timestamp
		}
		return ops[i].Seq < ops[j].Seq
	})
}
