// Package api provides the AuthAPI implementation over HTTP.
//
// The client normalizes every response envelope the backend has ever used —
// nested data.data, enveloped data, and flat — into canonical results, and
// maps transport failures into the auth error taxonomy exactly once. It
// never redirects and never clears storage: session-lifecycle policy belongs
// to the session manager, not the transport.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dugoutlabs/auth-go"
)

// Auth endpoint paths, as served by the dashboard backend.
const (
	loginPath    = "/api/auth/login"
	logoutPath   = "/api/auth/logout"
	mePath       = "/api/auth/me"
	registerPath = "/api/auth/register"
)

// TokenSource supplies the current bearer token, or "" when none exists.
// The session manager wires this to its credential store.
type TokenSource func(ctx context.Context) string

// Client implements auth.AuthAPI against the dashboard backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tokens     TokenSource
}

// compile-time check
var _ auth.AuthAPI = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for auth requests.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Client) { a.httpClient = c }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(a *Client) { a.httpClient.Timeout = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Client) { a.logger = l }
}

// WithTokenSource sets where the client finds the bearer token for
// authenticated requests. A token stored in the request context via
// auth.WithToken takes precedence.
func WithTokenSource(ts TokenSource) Option {
	return func(a *Client) { a.tokens = ts }
}

// New creates an HTTP auth client. baseURL may be empty to use relative
// URLs behind a reverse proxy.
func New(baseURL string, opts ...Option) *Client {
	a := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: auth.DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Login exchanges credentials for a token and user profile.
func (a *Client) Login(ctx context.Context, username, password string) (*auth.LoginResult, error) {
	body, status, err := a.do(ctx, http.MethodPost, loginPath, map[string]string{
		"username": username,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, rejectionError(status, body, "Login failed. Please try again.")
	}
	return decodeLoginResult(body)
}

// Register creates an account. The backend answers with the same envelope
// as login, so a successful registration yields a usable session.
func (a *Client) Register(ctx context.Context, username, email, password string) (*auth.LoginResult, error) {
	body, status, err := a.do(ctx, http.MethodPost, registerPath, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, rejectionError(status, body, "Registration failed. Please try again.")
	}
	return decodeLoginResult(body)
}

// Logout invalidates the server-side session for the current token.
// Best effort: the caller proceeds with local teardown regardless.
func (a *Client) Logout(ctx context.Context) error {
	token := a.token(ctx)
	if token == "" {
		return auth.NewError(auth.KindUnauthenticated, "No session to log out")
	}

	body, status, err := a.do(ctx, http.MethodPost, logoutPath, map[string]string{}, token)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return auth.NewError(auth.KindUnauthenticated, "Session already expired")
	}
	if status != http.StatusOK {
		return rejectionError(status, body, "Logout failed")
	}
	return nil
}

// CurrentUser returns the profile for the current bearer token. Without a
// token it fails immediately, making no network call.
func (a *Client) CurrentUser(ctx context.Context) (*auth.User, error) {
	token := a.token(ctx)
	if token == "" {
		return nil, auth.NewError(auth.KindUnauthenticated, "Not signed in")
	}

	body, status, err := a.do(ctx, http.MethodGet, mePath, nil, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, auth.NewError(auth.KindUnauthenticated, "Your session has expired. Please sign in again.")
	}
	if status != http.StatusOK {
		return nil, rejectionError(status, body, "Could not load your profile")
	}
	return decodeUser(body)
}

// token resolves the bearer token: request context first, then the
// configured source.
func (a *Client) token(ctx context.Context) string {
	if t := auth.TokenFromContext(ctx); t != "" {
		return t
	}
	if a.tokens != nil {
		return a.tokens(ctx)
	}
	return ""
}

// do issues one request and returns the raw body and status. Transport
// failures are mapped to KindNetwork here; HTTP-level failures are left to
// the caller, which knows the operation's semantics.
func (a *Client) do(ctx context.Context, method, path string, payload any, bearer string) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, auth.WrapError(auth.KindInternal, "encoding request", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, auth.WrapError(auth.KindInternal, "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, networkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, networkError(err)
	}

	a.logger.Debug("auth request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return body, resp.StatusCode, nil
}

// networkError maps a transport-level failure. Timeouts get their own
// message; everything else is a generic connectivity problem. No server
// message is ever attached: none was received.
func networkError(err error) *auth.Error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return auth.WrapError(auth.KindNetwork, "Request timeout. Please try again.", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return auth.WrapError(auth.KindNetwork, "Request timeout. Please try again.", err)
	}
	return auth.WrapError(auth.KindNetwork, "Network error. Please check your connection.", err)
}

// rejectionError maps an HTTP-level failure, preferring the server-supplied
// message over the generic fallback. Statuses that mean "the server looked
// at the credentials and said no" classify as rejections; anything else is
// an internal failure with the same message handling.
func rejectionError(status int, body []byte, fallback string) *auth.Error {
	msg := fallback
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		msg = envelope.Message
	}

	kind := auth.KindInternal
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		kind = auth.KindRejected
	}

	e := auth.NewError(kind, msg)
	e.HTTPStatus = status
	return e
}

// malformed reports a success-status response missing required fields.
func malformed() *auth.Error {
	return auth.NewError(auth.KindMalformed, "Invalid response format from server")
}

// credentialPair is the token/user pair found at some nesting level of a
// login response.
type credentialPair struct {
	Token string     `json:"token"`
	User  *auth.User `json:"user"`
}

// decodeLoginResult normalizes a successful login body. The backend has
// used three shapes over time: the full {status,message,data:{token,user},
// timestamp} envelope, a doubly nested data.data variant, and a flat
// {token,user} object. The decoder walks inward through "data" wrappers
// until a pair appears. A token without a user, or a user without a token,
// is a malformed response, not a partial success.
func decodeLoginResult(body []byte) (*auth.LoginResult, error) {
	raw := json.RawMessage(body)
	for depth := 0; depth < 3; depth++ {
		var env struct {
			credentialPair
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, malformed()
		}
		if env.Token != "" || env.User != nil {
			if env.Token == "" || env.User == nil || env.User.ID == "" {
				return nil, malformed()
			}
			return &auth.LoginResult{Token: env.Token, User: *env.User}, nil
		}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			break
		}
		raw = env.Data
	}
	return nil, malformed()
}

// decodeUser normalizes a current-user body: enveloped data, nested
// data.user, or a flat profile.
func decodeUser(body []byte) (*auth.User, error) {
	raw := json.RawMessage(body)
	for depth := 0; depth < 3; depth++ {
		var env struct {
			auth.User
			Wrapped *auth.User      `json:"user"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, malformed()
		}
		if env.Wrapped != nil && env.Wrapped.ID != "" {
			return env.Wrapped, nil
		}
		if env.ID != "" {
			u := env.User
			return &u, nil
		}
		if len(env.Data) == 0 || string(env.Data) == "null" {
			break
		}
		raw = env.Data
	}
	return nil, malformed()
}
