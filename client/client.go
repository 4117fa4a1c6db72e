// Package client implements the editor-side synchronization transport: a
// thin HTTP client for the collaboration endpoints, a long-poll session
// loop, a cadenced caret broadcaster and a debounced content pusher.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ashfame/gutenberg-collaborative-editing/api"
	"github.com/ashfame/gutenberg-collaborative-editing/document"
)

// Config wires a Client to one document on one server.
type Config struct {
	BaseURL    string
	DocumentID string
	UserID     string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client is the HTTP wrapper around the collaboration protocol. All calls
// carry the host-authenticated user identity header.
type Client struct {
	baseURL string
	docID   string
	userID  string
	http    *http.Client
	log     zerolog.Logger
}

// New builds a client; a nil HTTP client falls back to a plain one so the
// long-poll wait window is bounded by per-call contexts, not a global
// client timeout.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		docID:   cfg.DocumentID,
		userID:  cfg.UserID,
		http:    httpClient,
		log:     cfg.Logger,
	}
}

// UserID returns the identity this client acts as.
func (c *Client) UserID() string {
	return c.userID
}

// PushContent submits a content write and returns the new snapshot id.
// The server rejects the push when the caller does not hold the write
// lock; that surfaces as ErrLockRequired.
func (c *Client) PushContent(ctx context.Context, req api.PushContentRequest) (string, error) {
	var resp api.PushContentResponse
	status, err := c.do(ctx, http.MethodPost, "/content", req, &resp)
	if err != nil {
		return "", err
	}
	if status == http.StatusForbidden {
		return "", api.ErrLockRequired
	}
	if err := statusError(status); err != nil {
		return "", err
	}
	return resp.SnapshotID, nil
}

// PushCaret broadcasts the caller's caret state. Idempotent.
func (c *Client) PushCaret(ctx context.Context, caret document.CaretState, user document.User, colorTag string) error {
	req := api.PushCaretRequest{Caret: caret, User: user, ColorTag: colorTag}
	status, err := c.do(ctx, http.MethodPost, "/caret", req, nil)
	if err != nil {
		return err
	}
	return statusError(status)
}

// Poll issues one long-poll iteration. A nil response with a nil error
// means the wait window elapsed with nothing to deliver.
func (c *Client) Poll(ctx context.Context, since int64, aw map[string]document.AwarenessEntry) (*api.PollResponse, error) {
	if aw == nil {
		aw = map[string]document.AwarenessEntry{}
	}
	req := api.PollRequest{Since: since, Awareness: aw}
	var resp api.PollResponse
	status, err := c.do(ctx, http.MethodPost, "/poll", req, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	if err := statusError(status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AcquireLock requests the single-writer lock; ErrLockHeld when someone
// else has it.
func (c *Client) AcquireLock(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodPost, "/lock", nil, nil)
	if err != nil {
		return err
	}
	return statusError(status)
}

// ReleaseLock gives the lock back.
func (c *Client) ReleaseLock(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodDelete, "/lock", nil, nil)
	if err != nil {
		return err
	}
	return statusError(status)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	url := fmt.Sprintf("%s/api/v1/documents/%s%s", c.baseURL, c.docID, path)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", c.userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &TransportError{Err: err}
	}
	// Drain before closing so the connection goes back to the keep-alive
	// pool; the poll loop issues requests continuously.
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &TransportError{Status: resp.StatusCode, Err: err}
		}
	}
	return resp.StatusCode, nil
}
