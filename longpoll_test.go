package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
	"github.com/ashfame/gutenberg-collaborative-editing/document"
	"github.com/ashfame/gutenberg-collaborative-editing/syncer"
	"github.com/ashfame/gutenberg-collaborative-editing/tracker"
)

func pollBody(since int64, aw map[string]document.AwarenessEntry) api.PollRequest {
	if aw == nil {
		aw = map[string]document.AwarenessEntry{}
	}
	return api.PollRequest{Since: since, Awareness: aw}
}

func TestPollResolvesOnNewerContent(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "")
	store.snapshots["d1"] = document.ContentSnapshot{
		Units:      units("a", "b"),
		Timestamp:  500,
		SnapshotID: "snap-1",
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/poll", "bob", pollBody(100, nil))
	require.Equal(t, 200, w.Code)

	var resp api.PollResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Modified)
	require.NotNil(t, resp.Content)
	assert.Equal(t, "snap-1", resp.Content.SnapshotID)
	assert.Equal(t, []string{"a", "b"}, ids(resp.Content.Units))
}

func TestPollResolvesOnAwarenessDrift(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "")
	now := document.NowMillis()
	store.awareness["d1"] = map[string]document.AwarenessEntry{
		"alice": {Caret: document.Collapsed(1, 4), User: document.User{ID: "alice"}, LastCaretTime: now, LastHeartbeatTime: now},
	}

	// Bob has never seen Alice's caret.
	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/poll", "bob", pollBody(0, nil))
	require.Equal(t, 200, w.Code)

	var resp api.PollResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Modified)
	assert.Nil(t, resp.Content)
	assert.Contains(t, resp.Awareness, "alice")
}

func TestPollIgnoresOwnAwarenessEntry(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "")
	now := document.NowMillis()
	server := map[string]document.AwarenessEntry{
		"bob": {Caret: document.Collapsed(0, 1), User: document.User{ID: "bob"}, LastCaretTime: now, LastHeartbeatTime: now},
	}
	store.awareness["d1"] = server

	// Bob reports a stale view of his own entry; that alone must not
	// resolve the poll.
	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/poll", "bob", pollBody(0, map[string]document.AwarenessEntry{}))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPollTimesOutWithNoUpdate(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "")

	start := time.Now()
	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/poll", "bob", pollBody(0, nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "held for the full wait window")
}

func TestPollCancelledRequestEndsQuietly(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "")

	body, err := json.Marshal(pollBody(0, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/d1/poll", bytes.NewReader(body))
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "bob")

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "cancellation ends the wait early")
}

func TestPollExcludesStaleAwareness(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "")
	now := document.NowMillis()
	store.awareness["d1"] = map[string]document.AwarenessEntry{
		"old": {User: document.User{ID: "old"}, LastHeartbeatTime: now - 300_000},
	}

	// The only other entry is stale, so there is nothing to deliver.
	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/poll", "bob", pollBody(0, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPollUnknownDocument(t *testing.T) {
	r, _ := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/nope/poll", "bob", pollBody(0, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestObserverSeesEditorChange walks the full path: the lock holder pushes
// an operation batch, a concurrent observer's poll resolves with the newer
// snapshot, and the observer's synchronizer applies the change cleanly.
func TestObserverSeesEditorChange(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "alice")
	base := units("p0", "p1", "p2", "p3")
	store.snapshots["d1"] = document.ContentSnapshot{Units: base, Timestamp: 100, SnapshotID: "snap-0"}

	// Alice types into p2.
	edit := tracker.Operation{
		Type:      tracker.OpUpdate,
		Index:     2,
		Unit:      document.ContentUnit{ID: "p2", Payload: "hello"},
		Timestamp: document.NowMillis(),
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/content", "alice", api.PushContentRequest{
		Type:           api.PushOps,
		Operations:     []tracker.Operation{edit},
		CaretUnitIndex: 2,
	})
	require.Equal(t, 200, w.Code)

	// Bob polls with the pre-edit timestamp.
	w = doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/poll", "bob", pollBody(100, nil))
	require.Equal(t, 200, w.Code)

	var resp api.PollResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Modified)
	require.NotNil(t, resp.Content)
	assert.Greater(t, resp.Content.Timestamp, int64(100))
	assert.Equal(t, "hello", resp.Content.Units[2].Payload)

	// Bob has no pending local change on p2, so the update applies with
	// no conflict recorded.
	s := syncer.New(syncer.Merge)
	s.Load(base)
	res := s.ApplyRemoteOperations([]tracker.Operation{edit})
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, "hello", res.Merged[2].Payload)
}
