package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
	"github.com/ashfame/gutenberg-collaborative-editing/awareness"
	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// handlePoll is the long-poll endpoint. The request carries the caller's
// last-seen content timestamp and last-known awareness view; the handler
// blocks up to the wait window, re-checking at a fixed interval, and
// resolves early as soon as newer content exists or the awareness view
// drifted from what the caller reported. A poll that saw nothing returns
// 204 so the client can immediately re-issue the next one.
func (s *server) handlePoll(c *gin.Context) {
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

	var r api.PollRequest
	if err := c.BindJSON(&r); err != nil {
		log.Error().Err(err).Msg("could not parse poll request")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		log.Error().Err(err).Msg("error getting document")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	deadline := time.NewTimer(s.cfg.waitWindow)
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.checkInterval)
	defer ticker.Stop()

	for {
		resolved, err := s.checkForUpdates(ctx, docID, user, r)
		if err != nil {
			log.Error().Err(err).Msg("error checking for updates")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if resolved != nil {
			c.JSON(200, resolved)
			return
		}

		select {
		case <-ctx.Done():
			// Client went away; same quiet outcome as the timeout.
			c.Status(http.StatusNoContent)
			return
		case <-deadline.C:
			c.Status(http.StatusNoContent)
			return
		case <-ticker.C:
		}
	}
}

// checkForUpdates performs one poll iteration: content recency first, then
// awareness drift. Reads go straight to the store so the freshest write by
// a concurrent pusher is observed immediately.
func (s *server) checkForUpdates(ctx context.Context, docID, user string, r api.PollRequest) (*api.PollResponse, error) {
	snap, err := s.store.GetSnapshot(ctx, docID)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.GetAwareness(ctx, docID)
	if err != nil {
		return nil, err
	}
	active := awareness.FilterActive(entries, document.NowMillis(), s.cfg.activityTimeoutSeconds)

	if snap != nil && snap.Timestamp > r.Since {
		return &api.PollResponse{Modified: true, Content: snap, Awareness: active}, nil
	}
	if awareness.UpdateAvailable(r.Awareness, active, user) {
		return &api.PollResponse{Modified: false, Awareness: active}, nil
	}
	return nil, nil
}
