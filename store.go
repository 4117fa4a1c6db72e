package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// blobTTL bounds how long transient collaboration state outlives the last
// write. Snapshots and awareness are re-written constantly while a session
// is live; an expired blob just means the session is long over.
const blobTTL = 24 * time.Hour

// Store is the per-document persistence surface: one metadata hash, one
// content snapshot blob and one awareness blob per document. Snapshot and
// awareness are read and replaced wholesale; the conflict resolution in the
// syncer package exists to compensate for this coarse granularity.
type Store interface {
	GetDocument(ctx context.Context, id string) (api.Document, error)
	CreateDocument(ctx context.Context, doc api.Document) error

	// GetSnapshot returns nil with no error when the document has never
	// been written; reads always hit the backing store directly so
	// concurrent pollers observe the freshest write.
	GetSnapshot(ctx context.Context, id string) (*document.ContentSnapshot, error)
	SetSnapshot(ctx context.Context, id string, snap document.ContentSnapshot) error

	GetAwareness(ctx context.Context, id string) (map[string]document.AwarenessEntry, error)
	SetAwareness(ctx context.Context, id string, entries map[string]document.AwarenessEntry) error

	AcquireLock(ctx context.Context, id, userID string) error
	ReleaseLock(ctx context.Context, id, userID string) error
}

type redisStore struct {
	db *redis.Client
}

// NewRedisStore wraps a redis client in the Store interface.
func NewRedisStore(db *redis.Client) Store {
	return &redisStore{db: db}
}

func docKey(id string) string       { return fmt.Sprintf("documents.%v", id) }
func snapshotKey(id string) string  { return fmt.Sprintf("snapshots.%v", id) }
func awarenessKey(id string) string { return fmt.Sprintf("awareness.%v", id) }

func (s *redisStore) GetDocument(ctx context.Context, id string) (api.Document, error) {
	res, err := s.db.HGetAll(ctx, docKey(id)).Result()
	if err != nil {
		return api.Document{}, err
	}
	if len(res) == 0 {
		return api.Document{}, api.ErrNotFound
	}
	var doc api.Document
	if err := mapstructure.Decode(res, &doc); err != nil {
		return api.Document{}, err
	}
	return doc, nil
}

func (s *redisStore) CreateDocument(ctx context.Context, doc api.Document) error {
	return s.db.HSet(ctx, docKey(doc.ID),
		"id", doc.ID, "name", doc.Name, "author", doc.Author).Err()
}

func (s *redisStore) GetSnapshot(ctx context.Context, id string) (*document.ContentSnapshot, error) {
	raw, err := s.db.Get(ctx, snapshotKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap document.ContentSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *redisStore) SetSnapshot(ctx context.Context, id string, snap document.ContentSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Set(ctx, snapshotKey(id), raw, blobTTL).Err()
}

func (s *redisStore) GetAwareness(ctx context.Context, id string) (map[string]document.AwarenessEntry, error) {
	raw, err := s.db.Get(ctx, awarenessKey(id)).Result()
	if err == redis.Nil {
		return map[string]document.AwarenessEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	entries := make(map[string]document.AwarenessEntry)
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *redisStore) SetAwareness(ctx context.Context, id string, entries map[string]document.AwarenessEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.db.Set(ctx, awarenessKey(id), raw, blobTTL).Err()
}

// AcquireLock is a plain read-then-write: the storage layer offers no
// transaction, last writer wins at this granularity. Re-acquiring one's own
// lock succeeds.
func (s *redisStore) AcquireLock(ctx context.Context, id, userID string) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.LockUser != "" && doc.LockUser != userID {
		return api.ErrLockHeld
	}
	return s.db.HSet(ctx, docKey(id), "lock_user", userID).Err()
}

func (s *redisStore) ReleaseLock(ctx context.Context, id, userID string) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.LockUser != userID {
		return api.ErrNotAuthorized
	}
	return s.db.HSet(ctx, docKey(id), "lock_user", "").Err()
}
