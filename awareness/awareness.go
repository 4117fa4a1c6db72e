// Package awareness tracks which users are present in a document and where
// their caret is. Entries are last-write-wins per user key; staleness is
// decided by heartbeat age, never by explicit removal.
package awareness

import (
	"sort"

	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// DefaultActivityTimeoutSeconds is how long a user stays "active" after
// their last heartbeat.
const DefaultActivityTimeoutSeconds = 240

// UpdateAvailable reports whether the server-side awareness view differs
// from what the caller already holds, ignoring the caller's own entry.
// The server uses it to decide whether a long-poll may resolve early.
func UpdateAvailable(local, server map[string]document.AwarenessEntry, excludeUserID string) bool {
	l := withoutUser(local, excludeUserID)
	s := withoutUser(server, excludeUserID)
	if len(l) != len(s) {
		return true
	}
	keys := sortedKeys(l)
	for _, k := range keys {
		se, ok := s[k]
		if !ok || se != l[k] {
			return true
		}
	}
	return false
}

// FilterActive returns the entries whose heartbeat age at now does not
// exceed the timeout.
func FilterActive(entries map[string]document.AwarenessEntry, now int64, timeoutSeconds int) map[string]document.AwarenessEntry {
	out := make(map[string]document.AwarenessEntry, len(entries))
	cutoff := int64(timeoutSeconds) * 1000
	for id, e := range entries {
		if now-e.LastHeartbeatTime <= cutoff {
			out[id] = e
		}
	}
	return out
}

// ActiveCount counts entries considered active at now.
func ActiveCount(entries map[string]document.AwarenessEntry, now int64, timeoutSeconds int) int {
	return len(FilterActive(entries, now, timeoutSeconds))
}

// IsCollaborativelyActive reports whether more than one user is active:
// a single editor alone is not a collaboration.
func IsCollaborativelyActive(entries map[string]document.AwarenessEntry, now int64, timeoutSeconds int) bool {
	return ActiveCount(entries, now, timeoutSeconds) > 1
}

// Refresh returns the map with the given user's entry created or replaced,
// caret and heartbeat times set to now. The input map is not mutated.
func Refresh(entries map[string]document.AwarenessEntry, user document.User, caret document.CaretState, colorTag string, now int64) map[string]document.AwarenessEntry {
	out := make(map[string]document.AwarenessEntry, len(entries)+1)
	for id, e := range entries {
		out[id] = e
	}
	out[user.ID] = document.AwarenessEntry{
		Caret:             caret,
		User:              user,
		LastCaretTime:     now,
		LastHeartbeatTime: now,
		ColorTag:          colorTag,
	}
	return out
}

func withoutUser(entries map[string]document.AwarenessEntry, userID string) map[string]document.AwarenessEntry {
	out := make(map[string]document.AwarenessEntry, len(entries))
	for id, e := range entries {
		if id == userID {
			continue
		}
		out[id] = e
	}
	return out
}

func sortedKeys(entries map[string]document.AwarenessEntry) []string {
	keys := make([]string, 0, len(entries))
	for id := range entries {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}
