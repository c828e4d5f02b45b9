// Package upstream is the HTTP client for the answer service: the /stream
// event stream and the /sources listing.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/vectorfox/internal/apperr"
)

const defaultUserAgent = "vectorfox/1.0"

// Client talks to one answer service.
type Client struct {
	baseURL string
	ua      string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets the http.Client used for both endpoints. Streams are
// long-lived, so the client should not carry a short Timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.ua = ua
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		ua:      defaultUserAgent,
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) endpoint(path, query string) string {
	return c.baseURL + path + "?query=" + url.QueryEscape(query)
}

func (c *Client) get(ctx context.Context, path, query, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: build %s request: %w", path, err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.ua)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: GET %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("upstream: GET %s: %w: %d %s",
			path, apperr.ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// OpenStream opens the answer stream for query. The caller must Close the
// stream unless it has been drained to io.EOF.
func (c *Client) OpenStream(ctx context.Context, query string) (*Stream, error) {
	resp, err := c.get(ctx, "/stream", query, "text/event-stream")
	if err != nil {
		return nil, err
	}
	c.logger.Debug("upstream: stream opened", slog.String("query", query))
	return newStream(resp.Body), nil
}

// Sources returns the source URLs for query, in server order.
func (c *Client) Sources(ctx context.Context, query string) ([]string, error) {
	resp, err := c.get(ctx, "/sources", query, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var urls []string
	if err := json.NewDecoder(resp.Body).Decode(&urls); err != nil {
		return nil, fmt.Errorf("upstream: decode sources: %w: %v", apperr.ErrMalformedSources, err)
	}
	c.logger.Debug("upstream: sources fetched",
		slog.String("query", query), slog.Int("count", len(urls)))
	return urls, nil
}
