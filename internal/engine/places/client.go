// Package places talks to the Google Places web service: paginated nearby
// search and per-place detail lookups.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/engine/transport"
)

const (
	DefaultBaseURL    = "https://maps.googleapis.com/maps/api/place"
	DefaultPageDelay  = 2 * time.Second // next_page_token takes a moment to become valid
	DefaultMaxResults = 60
	DefaultRadius     = 5000.0 // metres
	DefaultTimeout    = 15 * time.Second
)

// Config holds the places client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Radius      float64 // metres
	PageDelay   time.Duration
	Timeout     time.Duration
	Fingerprint transport.Fingerprint
}

// Client issues search and detail requests, one at a time.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// NewClient applies defaults to cfg and builds a Client.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultRadius
	}
	if cfg.PageDelay < 0 {
		cfg.PageDelay = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:  cfg,
		http: transport.NewClient(transport.Config{Timeout: cfg.Timeout, Fingerprint: cfg.Fingerprint}),
		log:  log,
	}
}

// getJSON fetches endpoint with params and decodes the body into out.
// Network and decode failures are Transport errors; a non-200 status is Upstream.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, params url.Values, out any) error {
	params.Set("key", c.cfg.APIKey)
	reqURL := c.cfg.BaseURL + "/" + endpoint + "/json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apperr.Transport(op, fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", transport.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transport(op, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return apperr.Upstream(op, &SearchServiceError{
			Status:  fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: http.StatusText(resp.StatusCode),
		})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Transport(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
