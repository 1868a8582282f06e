// Package fetch retrieves the worker's schedule document from the remote
// source and keeps the served snapshot fresh.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/slotfinder/internal/model"
)

const maxPayloadBytes = 4 << 20

// Client fetches the schedule JSON document over HTTP. Transient failures
// (network errors, 5xx) are retried with doubling backoff; 4xx responses
// are terminal.
type Client struct {
	url         string
	httpClient  *http.Client
	maxAttempts int
	baseBackoff time.Duration
}

type ClientConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
}

func NewClient(url string, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	return &Client{
		url:         url,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
	}
}

func (c *Client) URL() string {
	return c.url
}

// Fetch returns the decoded document together with the raw payload, so
// callers can archive exactly the bytes that were served.
func (c *Client) Fetch(ctx context.Context) (model.Document, []byte, error) {
	raw, err := c.get(ctx)
	if err != nil {
		return model.Document{}, nil, err
	}

	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Document{}, nil, fmt.Errorf("decode schedule document: %w", err)
	}
	return doc, raw, nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// A cancelled context is not a transient source failure.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("schedule source returned %d", resp.StatusCode)
			continue
		default:
			return nil, fmt.Errorf("schedule source returned %d", resp.StatusCode)
		}
	}
	return nil, fmt.Errorf("fetch schedule after %d attempts: %w", c.maxAttempts, lastErr)
}
