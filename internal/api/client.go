// Package api is the HTTP client for the tracking server's REST endpoints
// used during bootstrap.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/livefeed/pkg/models"
)

// ErrUnexpectedStatus is matched by every non-2xx response error.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError reports a non-2xx response.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s: %d", e.Path, ErrUnexpectedStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Config holds the server connection settings.
type Config struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the default server connection settings.
func DefaultConfig() Config {
	return Config{
		URL:     "http://localhost:8082",
		Timeout: 30 * time.Second,
	}
}

// Client talks to the tracking server. The session cookie is kept in a
// cookie jar shared with the update channel handshake.
type Client struct {
	base    *url.URL
	token   string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

// New creates a Client for the server at cfg.URL.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", cfg.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", cfg.URL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("server url %q: missing host", cfg.URL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	return &Client{
		base:    base,
		token:   cfg.Token,
		timeout: cfg.Timeout,
		// No http.Client.Timeout: the websocket dialer rejects it, so every
		// request is bounded by a context deadline instead.
		http:   &http.Client{Jar: jar},
		logger: logger,
	}, nil
}

// BaseURL returns a copy of the server base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// HTTPClient returns the underlying client so the update channel handshake
// carries the same session cookie.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Server fetches server metadata from GET /api/server.
func (c *Client) Server(ctx context.Context) (models.Server, error) {
	var s models.Server
	err := c.get(ctx, "/api/server", nil, &s)
	return s, err
}

// Devices fetches the full device list from GET /api/devices.
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	var list []models.Device
	if err := c.get(ctx, "/api/devices", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Session fetches the current session user from GET /api/session. When a
// token is configured it is passed as the token query parameter.
func (c *Client) Session(ctx context.Context) (models.User, error) {
	var q url.Values
	if c.token != "" {
		q = url.Values{"token": {c.token}}
	}
	var u models.User
	err := c.get(ctx, "/api/session", q, &u)
	return u, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.BaseURL()
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Path: path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	c.logger.Debug("api request completed",
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
	)
	return nil
}
