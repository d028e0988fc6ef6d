// Package auth provides a client-side authentication session lifecycle for
// the analytics dashboard: token acquisition, persistence, validation,
// expiry handling, and redirect orchestration.
//
// The package defines the contracts — CredentialStore, AuthAPI, Navigator —
// and a Client assembled from injected implementations via Option functions,
// keeping the core independent of any specific storage medium or HTTP stack.
//
// Example usage with the HTTP API client and file-backed store:
//
//	client, err := auth.NewClient(
//	    auth.Config{BaseURL: "https://dash.example.com"},
//	    auth.WithAPI(apiClient),
//	    auth.WithStore(fileStore),
//	)
package auth

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Client is the main entry point for session operations. Concrete
// implementations are injected via Option functions.
type Client struct {
	config    Config
	logger    *slog.Logger
	store     CredentialStore
	api       AuthAPI
	navigator Navigator
}

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the address of the dashboard backend, e.g.
	// "https://dash.example.com". Empty means relative URLs behind a proxy.
	BaseURL string

	// Timeout bounds each network call. Default: 30 seconds.
	Timeout time.Duration

	// LoginDestination is where unauthenticated users are sent.
	// Default: "/login".
	LoginDestination Destination

	// DashboardDestination is the default post-login destination.
	// Default: "/dashboard".
	DashboardDestination Destination

	// TokenKey and UserKey name the two persisted fields in the credential
	// store. Defaults: "jwt_token" and "user_data".
	TokenKey string
	UserKey  string
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithStore sets the credential persistence implementation.
func WithStore(s CredentialStore) Option {
	return func(c *Client) { c.store = s }
}

// WithAPI sets the auth API implementation.
func WithAPI(a AuthAPI) Option {
	return func(c *Client) { c.api = a }
}

// WithNavigator sets the navigation capability invoked after login/logout.
func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

// DefaultTimeout bounds each network call unless overridden.
const DefaultTimeout = 30 * time.Second

// Default persisted field names, matching the keys the dashboard has always
// used for its stored credentials.
const (
	DefaultTokenKey = "jwt_token"
	DefaultUserKey  = "user_data"
)

// NewClient creates a new client with the given configuration and options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.LoginDestination == "" {
		cfg.LoginDestination = "/login"
	}
	if cfg.DashboardDestination == "" {
		cfg.DashboardDestination = "/dashboard"
	}
	if cfg.TokenKey == "" {
		cfg.TokenKey = DefaultTokenKey
	}
	if cfg.UserKey == "" {
		cfg.UserKey = DefaultUserKey
	}

	c := &Client{config: cfg}
	for _, o := range opts {
		o(c)
	}
	if c.api == nil {
		return nil, fmt.Errorf("auth: an AuthAPI implementation is required")
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Store returns the credential store, or nil if not configured.
func (c *Client) Store() CredentialStore { return c.store }

// API returns the auth API implementation.
func (c *Client) API() AuthAPI { return c.api }

// Navigator returns the navigation capability, or nil if not configured.
func (c *Client) Navigator() Navigator { return c.navigator }

// Logger returns the configured logger, or slog.Default().
func (c *Client) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Close releases all resources held by the client.
// Any injected implementation that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []interface{}{c.store, c.api, c.navigator}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
