// Package fake provides in-memory implementations of the auth interfaces
// for testing.
//
// Use fake.New() in unit tests to avoid network calls and a real credential
// store. Every call is counted and every failure is injectable, so tests
// can assert "no network call was made" or simulate an unreachable backend.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/dugoutlabs/auth-go"
)

// Backend bundles the fake implementations behind one *auth.Client.
type Backend struct {
	API   *API
	Store *Store
	Nav   *Navigator
}

// Option configures the fake backend.
type Option func(*Backend)

// WithUser adds an account that can log in with the given password.
func WithUser(user auth.User, password string) Option {
	return func(b *Backend) {
		b.API.users[user.Username] = user
		b.API.passwords[user.Username] = password
	}
}

// WithSession adds a server-side valid token for user and mirrors the pair
// into the fake store, as if a previous run had logged in.
func WithSession(token string, user auth.User) Option {
	return func(b *Backend) {
		b.API.users[user.Username] = user
		b.API.tokens[token] = user.Username
		b.Store.token = token
		b.Store.user = user
		b.Store.present = true
	}
}

// WithStoredSession seeds only the store, without the server recognizing
// the token. Validation of such a session comes back unauthorized.
func WithStoredSession(token string, user auth.User) Option {
	return func(b *Backend) {
		b.Store.token = token
		b.Store.user = user
		b.Store.present = true
	}
}

// WithValidToken registers a token server-side only, resolving to user.
// Combine with WithStoredSession to give the store a stale copy of the
// profile and the server the authoritative one.
func WithValidToken(token string, user auth.User) Option {
	return func(b *Backend) {
		b.API.users[user.Username] = user
		b.API.tokens[token] = user.Username
	}
}

// New creates a fake backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		API: &API{
			users:     make(map[string]auth.User),
			passwords: make(map[string]string),
			tokens:    make(map[string]string),
		},
		Store: &Store{},
		Nav:   &Navigator{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Client returns an *auth.Client wired to the fakes.
func (b *Backend) Client(cfg auth.Config) *auth.Client {
	c, err := auth.NewClient(cfg,
		auth.WithAPI(b.API),
		auth.WithStore(b.Store),
		auth.WithNavigator(b.Nav),
	)
	if err != nil {
		panic(fmt.Sprintf("fake: wiring client: %v", err))
	}
	return c
}

// --- AuthAPI ---

// API is an in-memory auth.AuthAPI with injectable failures and call
// counters.
type API struct {
	mu        sync.Mutex
	users     map[string]auth.User
	passwords map[string]string
	tokens    map[string]string // token → username
	nextToken int

	loginErr    error
	currentErr  error
	logoutErr   error
	registerErr error

	loginCalls    int
	currentCalls  int
	logoutCalls   int
	registerCalls int

	loginResult *auth.LoginResult // overrides the computed result when set
	loginGate   chan struct{}     // when set, Login blocks until the gate is closed
}

var _ auth.AuthAPI = (*API)(nil)

// SetLoginError makes every subsequent Login fail with err.
func (a *API) SetLoginError(err error) { a.mu.Lock(); a.loginErr = err; a.mu.Unlock() }

// SetCurrentUserError makes every subsequent CurrentUser fail with err.
func (a *API) SetCurrentUserError(err error) { a.mu.Lock(); a.currentErr = err; a.mu.Unlock() }

// SetLogoutError makes every subsequent Logout fail with err.
func (a *API) SetLogoutError(err error) { a.mu.Lock(); a.logoutErr = err; a.mu.Unlock() }

// SetRegisterError makes every subsequent Register fail with err.
func (a *API) SetRegisterError(err error) { a.mu.Lock(); a.registerErr = err; a.mu.Unlock() }

// SetLoginResult forces Login to return exactly res, bypassing the account
// table. Use to simulate malformed server responses.
func (a *API) SetLoginResult(res *auth.LoginResult) { a.mu.Lock(); a.loginResult = res; a.mu.Unlock() }

// LoginCalls returns how many times Login was invoked.
func (a *API) LoginCalls() int { a.mu.Lock(); defer a.mu.Unlock(); return a.loginCalls }

// CurrentUserCalls returns how many times CurrentUser was invoked.
func (a *API) CurrentUserCalls() int { a.mu.Lock(); defer a.mu.Unlock(); return a.currentCalls }

// LogoutCalls returns how many times Logout was invoked.
func (a *API) LogoutCalls() int { a.mu.Lock(); defer a.mu.Unlock(); return a.logoutCalls }

// RegisterCalls returns how many times Register was invoked.
func (a *API) RegisterCalls() int { a.mu.Lock(); defer a.mu.Unlock(); return a.registerCalls }

// SetLoginGate makes the next Login call block until gate is closed, so
// tests can hold a call in flight while a second one overtakes it. The gate
// applies to one call only.
func (a *API) SetLoginGate(gate chan struct{}) { a.mu.Lock(); a.loginGate = gate; a.mu.Unlock() }

// Login checks the password table and mints a fresh token.
func (a *API) Login(_ context.Context, username, password string) (*auth.LoginResult, error) {
	a.mu.Lock()
	a.loginCalls++
	gate := a.loginGate
	a.loginGate = nil
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loginErr != nil {
		return nil, a.loginErr
	}
	if a.loginResult != nil {
		return a.loginResult, nil
	}

	pw, ok := a.passwords[username]
	if !ok || pw != password {
		return nil, auth.NewError(auth.KindRejected, "Invalid username or password")
	}

	a.nextToken++
	token := fmt.Sprintf("fake-token-%d", a.nextToken)
	a.tokens[token] = username
	user := a.users[username]
	return &auth.LoginResult{Token: token, User: user}, nil
}

// Logout invalidates the context token.
func (a *API) Logout(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logoutCalls++

	if a.logoutErr != nil {
		return a.logoutErr
	}
	delete(a.tokens, auth.TokenFromContext(ctx))
	return nil
}

// CurrentUser resolves the context token to its user.
func (a *API) CurrentUser(ctx context.Context) (*auth.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentCalls++

	if a.currentErr != nil {
		return nil, a.currentErr
	}

	token := auth.TokenFromContext(ctx)
	if token == "" {
		return nil, auth.NewError(auth.KindUnauthenticated, "Not signed in")
	}
	username, ok := a.tokens[token]
	if !ok {
		return nil, auth.NewError(auth.KindUnauthenticated, "Your session has expired. Please sign in again.")
	}
	user := a.users[username]
	return &user, nil
}

// Register adds the account and logs it in.
func (a *API) Register(_ context.Context, username, email, password string) (*auth.LoginResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registerCalls++

	if a.registerErr != nil {
		return nil, a.registerErr
	}
	if _, exists := a.users[username]; exists {
		return nil, auth.NewError(auth.KindRejected, "Username already taken")
	}

	a.nextToken++
	user := auth.User{
		ID:       fmt.Sprintf("fake-user-%d", a.nextToken),
		Username: username,
		Email:    email,
		Role:     "user",
	}
	a.users[username] = user
	a.passwords[username] = password

	token := fmt.Sprintf("fake-token-%d", a.nextToken)
	a.tokens[token] = username
	return &auth.LoginResult{Token: token, User: user}, nil
}

// --- CredentialStore ---

// Store is an in-memory auth.CredentialStore.
type Store struct {
	mu      sync.Mutex
	token   string
	user    auth.User
	present bool

	saveErr  error
	clearErr error

	saveCalls  int
	clearCalls int
}

var _ auth.CredentialStore = (*Store)(nil)

// SetSaveError makes every subsequent Save fail with err.
func (s *Store) SetSaveError(err error) { s.mu.Lock(); s.saveErr = err; s.mu.Unlock() }

// SetClearError makes every subsequent Clear fail with err.
func (s *Store) SetClearError(err error) { s.mu.Lock(); s.clearErr = err; s.mu.Unlock() }

// SaveCalls returns how many times Save was invoked.
func (s *Store) SaveCalls() int { s.mu.Lock(); defer s.mu.Unlock(); return s.saveCalls }

// ClearCalls returns how many times Clear was invoked.
func (s *Store) ClearCalls() int { s.mu.Lock(); defer s.mu.Unlock(); return s.clearCalls }

// Empty reports whether the store holds no record.
func (s *Store) Empty() bool { s.mu.Lock(); defer s.mu.Unlock(); return !s.present }

// Save stores the pair.
func (s *Store) Save(_ context.Context, token string, user auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++

	if s.saveErr != nil {
		return s.saveErr
	}
	s.token, s.user, s.present = token, user, true
	return nil
}

// Load returns the stored pair.
func (s *Store) Load(_ context.Context) (string, auth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return "", auth.User{}, false
	}
	return s.token, s.user, true
}

// Clear removes the pair. Idempotent.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCalls++

	if s.clearErr != nil {
		return s.clearErr
	}
	s.token, s.user, s.present = "", auth.User{}, false
	return nil
}

// --- Navigator ---

// Navigator records every navigation the session manager requests.
type Navigator struct {
	mu           sync.Mutex
	destinations []auth.Destination
}

var _ auth.Navigator = (*Navigator)(nil)

// Navigate records dest.
func (n *Navigator) Navigate(dest auth.Destination) {
	n.mu.Lock()
	n.destinations = append(n.destinations, dest)
	n.mu.Unlock()
}

// Destinations returns the recorded navigations in order.
func (n *Navigator) Destinations() []auth.Destination {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]auth.Destination, len(n.destinations))
	copy(out, n.destinations)
	return out
}

// Last returns the most recent navigation, or "".
func (n *Navigator) Last() auth.Destination {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.destinations) == 0 {
		return ""
	}
	return n.destinations[len(n.destinations)-1]
}
