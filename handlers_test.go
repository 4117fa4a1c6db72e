package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
	"github.com/ashfame/gutenberg-collaborative-editing/document"
	"github.com/ashfame/gutenberg-collaborative-editing/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() serverConfig {
	return serverConfig{
		waitWindow:             100 * time.Millisecond,
		checkInterval:          10 * time.Millisecond,
		activityTimeoutSeconds: 240,
	}
}

func newTestServer(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	store := newMemStore()
	return newRouter(newServer(store, testConfig())), store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedDoc(store *memStore, id, lockUser string) {
	store.docs[id] = api.Document{ID: id, Name: "Doc " + id, Author: "author", LockUser: lockUser}
}

func TestCreateAndGetDocument(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents", "alice", api.CreateDocumentRequest{Name: "Notes"})
	require.Equal(t, 200, w.Code)

	var doc api.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Notes", doc.Name)
	assert.Equal(t, "alice", doc.Author)

	w = doJSON(t, r, http.MethodGet, "/api/v1/documents/"+doc.ID, "alice", nil)
	assert.Equal(t, 200, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/documents/nope", "alice", nil)
	assert.Equal(t, 404, w.Code)
}

func TestPushContentRequiresLock(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "bob")

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/content", "alice", api.PushContentRequest{
		Type:  api.PushFull,
		Units: units("a"),
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPushContentFullWritesNewSnapshot(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "alice")

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/content", "alice", api.PushContentRequest{
		Type:  api.PushFull,
		Units: units("a", "b"),
	})
	require.Equal(t, 200, w.Code)

	var resp api.PushContentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SnapshotID)

	snap := store.snapshots["d1"]
	assert.Equal(t, resp.SnapshotID, snap.SnapshotID)
	assert.Equal(t, "alice", snap.AuthorID)
	assert.Equal(t, "Doc d1", snap.Title, "first write initializes the title from metadata")
	assert.Equal(t, []string{"a", "b"}, ids(snap.Units))
	assert.Greater(t, snap.Timestamp, int64(0))
}

func TestPushContentEachWriteGetsFreshSnapshotID(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "alice")

	first := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/content", "alice", api.PushContentRequest{
		Type: api.PushFull, Units: units("a"),
	})
	second := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/content", "alice", api.PushContentRequest{
		Type: api.PushFull, Units: units("a", "b"),
	})
	require.Equal(t, 200, first.Code)
	require.Equal(t, 200, second.Code)

	var r1, r2 api.PushContentResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &r1))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &r2))
	assert.NotEqual(t, r1.SnapshotID, r2.SnapshotID)

	// Recency ordering advances even when both writes land in the same
	// millisecond.
	assert.Greater(t, store.snapshots["d1"].Timestamp, int64(0))
}

func TestPushContentOpsBatch(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "alice")
	store.snapshots["d1"] = document.ContentSnapshot{
		Units:     units("a", "b", "c"),
		Title:     "Doc d1",
		Timestamp: 100,
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/content", "alice", api.PushContentRequest{
		Type: api.PushOps,
		Operations: []tracker.Operation{{
			Type:      tracker.OpUpdate,
			Index:     1,
			Unit:      document.ContentUnit{ID: "b", Payload: "edited"},
			Timestamp: document.NowMillis(),
		}},
		CaretUnitIndex: 1,
	})
	require.Equal(t, 200, w.Code)

	snap := store.snapshots["d1"]
	assert.Equal(t, "edited", snap.Units[1].Payload)
	assert.Greater(t, snap.Timestamp, int64(100))
}

func TestPushContentTitleOnly(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "alice")

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/content", "alice", api.PushContentRequest{
		Type:  api.PushTitle,
		Title: "Renamed",
	})
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "Renamed", store.snapshots["d1"].Title)
}

func TestPushContentRejectsUnknownType(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "alice")

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/content", "alice", api.PushContentRequest{Type: "patch"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPushContentRequiresIdentity(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "alice")

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/content", "", api.PushContentRequest{Type: api.PushFull})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPushCaretUpsertsAwareness(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "")

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/caret", "alice", api.PushCaretRequest{
		Caret: document.Collapsed(2, 5),
		User:  document.User{ID: "alice", DisplayName: "Alice"},
	})
	require.Equal(t, 200, w.Code)

	entry := store.awareness["d1"]["alice"]
	assert.Equal(t, document.Collapsed(2, 5), entry.Caret)
	assert.Equal(t, "Alice", entry.User.DisplayName)
	assert.NotEmpty(t, entry.ColorTag, "server assigns a stable color when none given")
	assert.Greater(t, entry.LastHeartbeatTime, int64(0))

	// Re-push replaces the entry: last write wins per user.
	w = doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/caret", "alice", api.PushCaretRequest{
		Caret: document.Collapsed(0, 0),
		User:  document.User{ID: "alice", DisplayName: "Alice"},
	})
	require.Equal(t, 200, w.Code)
	assert.Equal(t, document.Collapsed(0, 0), store.awareness["d1"]["alice"].Caret)
	assert.Len(t, store.awareness["d1"], 1)
}

func TestPushCaretNormalizesSelection(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "")

	w := doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/caret", "alice", api.PushCaretRequest{
		Caret: document.RangeAcrossUnits(3, 1, 5, 2),
	})
	require.Equal(t, 200, w.Code)

	entry := store.awareness["d1"]["alice"]
	assert.Equal(t, document.RangeAcrossUnits(1, 3, 2, 5), entry.Caret)
	assert.Equal(t, "alice", entry.User.ID, "identity defaults to the request user")
}

func TestLockAcquireAndRelease(t *testing.T) {
	r, store := newTestServer(t)
	seedDoc(store, "d1", "")

	assert.Equal(t, 200, doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/lock", "alice", nil).Code)
	assert.Equal(t, "alice", store.docs["d1"].LockUser)

	// Re-acquiring one's own lock is fine; someone else's is not.
	assert.Equal(t, 200, doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/lock", "alice", nil).Code)
	assert.Equal(t, http.StatusConflict, doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/lock", "bob", nil).Code)

	// Only the holder may release.
	assert.Equal(t, http.StatusForbidden, doJSON(t, r, http.MethodDelete, "/api/v1/documents/d1/lock", "bob", nil).Code)
	assert.Equal(t, 200, doJSON(t, r, http.MethodDelete, "/api/v1/documents/d1/lock", "alice", nil).Code)
	assert.Equal(t, "", store.docs["d1"].LockUser)

	assert.Equal(t, 200, doJSON(t, r, http.MethodPost, "/api/v1/documents/d1/lock", "bob", nil).Code)
}
