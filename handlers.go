package main

import (
	"context"
	"errors"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
	"github.com/ashfame/gutenberg-collaborative-editing/awareness"
	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// userHeader carries the host-authenticated user identity. Authentication
// itself is the host's job; by the time a request lands here the header is
// trusted.
const userHeader = "X-User-ID"

type server struct {
	store Store
	cfg   serverConfig
}

type serverConfig struct {
	waitWindow             time.Duration
	checkInterval          time.Duration
	activityTimeoutSeconds int
}

func defaultConfig() serverConfig {
	return serverConfig{
		waitWindow:             30 * time.Second,
		checkInterval:          100 * time.Millisecond,
		activityTimeoutSeconds: awareness.DefaultActivityTimeoutSeconds,
	}
}

func newServer(store Store, cfg serverConfig) *server {
	return &server{store: store, cfg: cfg}
}

func requestUser(c *gin.Context) string {
	return c.GetHeader(userHeader)
}

/////////////////////////////
/// Document Handlers
/////////////////////////////

func (s *server) handleCreateDocument(c *gin.Context) {
	var r api.CreateDocumentRequest
	if err := c.BindJSON(&r); err != nil {
		log.Error().Err(err).Msg("could not parse request")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if r.Author == "" {
		r.Author = requestUser(c)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second*5)
	defer cancel()

	doc := api.Document{
		ID:     uuid.NewString(),
		Name:   r.Name,
		Author: r.Author,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		log.Error().Err(err).Msg("error creating document")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(200, doc)
}

func (s *server) handleGetDocument(c *gin.Context) {
	docID := c.Param("id")
	if docID == "" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second*5)
	defer cancel()

	doc, err := s.store.GetDocument(ctx, docID)
	if errors.Is(err, api.ErrNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("error getting document")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(200, doc)
}

/////////////////////////////
/// Content Push
/////////////////////////////

func (s *server) handlePushContent(c *gin.Context) {
	docID := c.Param("id")
	user := requestUser(c)
	if docID == "" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if user == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var r api.PushContentRequest
	if err := c.BindJSON(&r); err != nil {
		log.Error().Err(err).Msg("could not parse content push")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second*5)
	defer cancel()

	doc, err := s.store.GetDocument(ctx, docID)
	if errors.Is(err, api.ErrNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("error getting document")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// Content writes are gated on the single-writer lock.
	if doc.LockUser != user {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	prev, err := s.store.GetSnapshot(ctx, docID)
	if err != nil {
		log.Error().Err(err).Msg("error getting snapshot")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	// First write initializes from the document metadata.
	snap := document.ContentSnapshot{Title: doc.Name}
	if prev != nil {
		snap = *prev
	}

	switch r.Type {
	case api.PushFull:
		snap.Units = document.CloneUnits(r.Units)
	case api.PushOps:
		snap.Units = applyOperations(snap.Units, r.Operations)
	case api.PushTitle:
		snap.Title = r.Title
	default:
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	snap.SnapshotID = uuid.NewString()
	snap.AuthorID = user
	snap.Timestamp = document.NowMillis()
	if prev != nil && snap.Timestamp <= prev.Timestamp {
		// Clock went nowhere between two writes; recency ordering still
		// has to advance.
		snap.Timestamp = prev.Timestamp + 1
	}

	if err := s.store.SetSnapshot(ctx, docID, snap); err != nil {
		log.Error().Err(err).Msg("error writing snapshot")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(200, api.PushContentResponse{SnapshotID: snap.SnapshotID})
}

/////////////////////////////
/// Caret Push
/////////////////////////////

func (s *server) handlePushCaret(c *gin.Context) {
	docID := c.Param("id")
	user := requestUser(c)
	if docID == "" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if user == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var r api.PushCaretRequest
	if err := c.BindJSON(&r); err != nil {
		log.Error().Err(err).Msg("could not parse caret push")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if r.User.ID == "" {
		r.User.ID = user
	}
	if r.ColorTag == "" {
		r.ColorTag = colorTagFor(user)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second*5)
	defer cancel()

	entries, err := s.store.GetAwareness(ctx, docID)
	if err != nil {
		log.Error().Err(err).Msg("error getting awareness")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	entries = awareness.Refresh(entries, r.User, r.Caret.Normalize(), r.ColorTag, document.NowMillis())
	if err := s.store.SetAwareness(ctx, docID, entries); err != nil {
		log.Error().Err(err).Msg("error writing awareness")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Status(200)
}

// caretPalette backs colorTagFor; a stable color is assigned when the
// client did not pick one.
var caretPalette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#008080",
}

func colorTagFor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return caretPalette[int(h.Sum32())%len(caretPalette)]
}

/////////////////////////////
/// Lock Handlers
/////////////////////////////

func (s *server) handleAcquireLock(c *gin.Context) {
	docID := c.Param("id")
	user := requestUser(c)
	if docID == "" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if user == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second*5)
	defer cancel()

	err := s.store.AcquireLock(ctx, docID, user)
	switch {
	case errors.Is(err, api.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, api.ErrLockHeld):
		c.AbortWithStatus(http.StatusConflict)
	case err != nil:
		log.Error().Err(err).Msg("error acquiring lock")
		c.AbortWithStatus(http.StatusInternalServerError)
	default:
		c.Status(200)
	}
}

func (s *server) handleReleaseLock(c *gin.Context) {
	docID := c.Param("id")
	user := requestUser(c)
	if docID == "" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if user == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second*5)
	defer cancel()

	err := s.store.ReleaseLock(ctx, docID, user)
	switch {
	case errors.Is(err, api.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, api.ErrNotAuthorized):
		c.AbortWithStatus(http.StatusForbidden)
	case err != nil:
		log.Error().Err(err).Msg("error releasing lock")
		c.AbortWithStatus(http.StatusInternalServerError)
	default:
		c.Status(200)
	}
}
