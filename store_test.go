package main

import (
	"context"
	"sync"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// memStore is the in-memory Store used by handler tests. It mimics the
// redis-backed store's semantics: whole-value snapshot/awareness blobs,
// non-transactional lock read-then-write.
type memStore struct {
	mu        sync.Mutex
	docs      map[string]api.Document
	snapshots map[string]document.ContentSnapshot
	awareness map[string]map[string]document.AwarenessEntry
}

func newMemStore() *memStore {
	return &memStore{
		docs:      make(map[string]api.Document),
		snapshots: make(map[string]document.ContentSnapshot),
		awareness: make(map[string]map[string]document.AwarenessEntry),
	}
}

func (m *memStore) GetDocument(_ context.Context, id string) (api.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return api.Document{}, api.ErrNotFound
	}
	return doc, nil
}

func (m *memStore) CreateDocument(_ context.Context, doc api.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

func (m *memStore) GetSnapshot(_ context.Context, id string) (*document.ContentSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[id]
	if !ok {
		return nil, nil
	}
	cp := snap
	cp.Units = document.CloneUnits(snap.Units)
	return &cp, nil
}

func (m *memStore) SetSnapshot(_ context.Context, id string, snap document.ContentSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Units = document.CloneUnits(snap.Units)
	m.snapshots[id] = snap
	return nil
}

func (m *memStore) GetAwareness(_ context.Context, id string) (map[string]document.AwarenessEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]document.AwarenessEntry, len(m.awareness[id]))
	for k, v := range m.awareness[id] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SetAwareness(_ context.Context, id string, entries map[string]document.AwarenessEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(map[string]document.AwarenessEntry, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	m.awareness[id] = cp
	return nil
}

func (m *memStore) AcquireLock(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return api.ErrNotFound
	}
	if doc.LockUser != "" && doc.LockUser != userID {
		return api.ErrLockHeld
	}
	doc.LockUser = userID
	m.docs[id] = doc
	return nil
}

func (m *memStore) ReleaseLock(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return api.ErrNotFound
	}
	if doc.LockUser != userID {
		return api.ErrNotAuthorized
	}
	doc.LockUser = ""
	m.docs[id] = doc
	return nil
}
