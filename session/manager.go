// Package session provides the session manager: the single owner of the
// client's authentication state.
//
// The manager orchestrates login, logout, startup rehydration, and token
// validation. It is the only writer of the credential store, and every
// state transition flows through it; consumers observe state via Session()
// snapshots or Subscribe().
package session

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dugoutlabs/auth-go"
	"github.com/dugoutlabs/auth-go/api"
	"github.com/dugoutlabs/auth-go/metrics"
)

// opKind names an operation for sequence tracking.
type opKind int

const (
	opLogin opKind = iota
	opCheck
)

// Manager owns the in-memory session and drives every transition.
//
// Concurrent calls of the same operation are raced last-write-wins by the
// UI's own contract (the form disables its submit button while a call is in
// flight); the manager additionally tracks a sequence number per operation
// kind and discards responses superseded by a newer call, so the race is
// not observable in practice. In-flight calls are never cancelled by
// consumers going away; their results still settle the state on arrival.
type Manager struct {
	client       *auth.Client
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tokenExpired func(string) bool

	mu      sync.Mutex
	session auth.Session
	seq     [2]uint64
	subs    map[int]func(auth.Session)
	nextSub int

	initOnce sync.Once
	sf       singleflight.Group
}

// Option configures the Manager.
type Option func(*Manager)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithExpiryCheck overrides the local token-expiry hint. The default treats
// a token as expired only when it parses as a JWT with a past exp claim;
// opaque tokens always go to the network.
func WithExpiryCheck(f func(token string) bool) Option {
	return func(mgr *Manager) { mgr.tokenExpired = f }
}

// New creates a session manager on the given client. The session starts in
// StatusUnknown until Initialize runs.
func New(client *auth.Client, opts ...Option) *Manager {
	m := &Manager{
		client:       client,
		metrics:      metrics.New(false),
		logger:       client.Logger(),
		tokenExpired: api.Expired,
		session:      auth.Session{Status: auth.StatusUnknown},
		subs:         make(map[int]func(auth.Session)),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Session returns a snapshot of the current session. The returned user is a
// copy; mutating it never affects manager state.
func (m *Manager) Session() auth.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state
// transition. The returned function cancels the subscription.
func (m *Manager) Subscribe(fn func(auth.Session)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Initialize rehydrates the session from the credential store and kicks off
// an asynchronous validation. It runs once; later calls are no-ops.
//
// If a stored record exists the user is set tentatively, so the UI can
// render as provisionally signed in while the check is in flight. The check
// is bounded by the API client's own timeout, so the session always settles
// even if the backend never answers.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		if store := m.client.Store(); store != nil {
			if token, user, ok := store.Load(ctx); ok {
				u := user
				m.transition(func(s *auth.Session) {
					s.Token = token
					s.User = &u
					s.Status = auth.StatusAuthenticating
				})
				m.logger.Debug("rehydrated stored session", "user", user.Username)
			} else {
				m.transition(func(s *auth.Session) { s.Status = auth.StatusAuthenticating })
			}
		} else {
			m.transition(func(s *auth.Session) { s.Status = auth.StatusAuthenticating })
		}

		// Fire and forget: the UI must never block on startup validation.
		go m.CheckAuth(context.WithoutCancel(ctx))
	})
}

// CheckAuth validates the stored token against the backend and settles the
// session either way. It returns true only when the backend confirmed the
// session. All failure is folded into the boolean plus a state transition;
// CheckAuth never returns an error. Concurrent calls are deduplicated.
func (m *Manager) CheckAuth(ctx context.Context) bool {
	v, _, _ := m.sf.Do("checkauth", func() (interface{}, error) {
		return m.checkAuth(ctx), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (m *Manager) checkAuth(ctx context.Context) bool {
	seq := m.begin(opCheck)

	token := m.storedToken(ctx)
	if token == "" {
		m.applyIfCurrent(opCheck, seq, func(s *auth.Session) {
			s.Token, s.User, s.Status = "", nil, auth.StatusUnauthenticated
		})
		m.metrics.RecordValidation("no_token")
		return false
	}

	// A token that is visibly expired tears down locally without a doomed
	// round trip. Opaque tokens skip this and go to the network.
	if m.tokenExpired(token) {
		m.teardownIfCurrent(ctx, opCheck, seq)
		m.metrics.RecordValidation("expired_local")
		m.logger.Debug("stored token expired locally")
		return false
	}

	user, err := m.client.API().CurrentUser(auth.WithToken(ctx, token))
	if err != nil {
		m.teardownIfCurrent(ctx, opCheck, seq)
		m.metrics.RecordValidation("unauthenticated")
		m.logger.Debug("token validation failed", "kind", auth.KindOf(err).String(), "error", err)
		return false
	}

	// The server profile wins over whatever was stored optimistically.
	m.applyIfCurrent(opCheck, seq, func(s *auth.Session) {
		s.Token = token
		s.User = user
		s.Status = auth.StatusAuthenticated
	})
	m.persist(ctx, token, *user)
	m.metrics.RecordValidation("authenticated")
	return true
}

// Login authenticates with the given credentials. On success the session is
// persisted and the manager navigates to the dashboard destination. On
// failure the session is left unauthenticated, nothing is persisted, and
// the mapped error is returned for the form to display.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		m.metrics.RecordLoginFailure(auth.KindValidation.String())
		return auth.NewError(auth.KindValidation, "Username and password are required")
	}

	m.metrics.RecordLoginAttempt()
	seq := m.begin(opLogin)
	m.transition(func(s *auth.Session) {
		s.User = nil
		s.Status = auth.StatusAuthenticating
	})

	res, err := m.client.API().Login(ctx, username, password)
	if err == nil && (res == nil || res.Token == "" || res.User.ID == "") {
		// A token without a user (or vice versa) is a login failure, not a
		// partial success.
		err = auth.NewError(auth.KindMalformed, "Invalid response format from server")
	}
	if err != nil {
		m.applyIfCurrent(opLogin, seq, func(s *auth.Session) {
			s.Token, s.User, s.Status = "", nil, auth.StatusUnauthenticated
		})
		m.metrics.RecordLoginFailure(auth.KindOf(err).String())
		m.logger.Info("login failed", "username", username, "kind", auth.KindOf(err).String())
		return err
	}

	if !m.applyIfCurrent(opLogin, seq, func(s *auth.Session) {
		s.Token = res.Token
		u := res.User
		s.User = &u
		s.Status = auth.StatusAuthenticated
	}) {
		// A newer login superseded this one; it owns the state now.
		return nil
	}

	m.persist(ctx, res.Token, res.User)
	m.logger.Info("login successful", "username", res.User.Username)
	m.navigate(m.client.Config().DashboardDestination)
	return nil
}

// Register creates an account and signs the new user in with the returned
// session, following the same rules as Login.
func (m *Manager) Register(ctx context.Context, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return auth.NewError(auth.KindValidation, "Username, email and password are required")
	}

	seq := m.begin(opLogin)
	m.transition(func(s *auth.Session) {
		s.User = nil
		s.Status = auth.StatusAuthenticating
	})

	res, err := m.client.API().Register(ctx, username, email, password)
	if err == nil && (res == nil || res.Token == "" || res.User.ID == "") {
		err = auth.NewError(auth.KindMalformed, "Invalid response format from server")
	}
	if err != nil {
		m.applyIfCurrent(opLogin, seq, func(s *auth.Session) {
			s.Token, s.User, s.Status = "", nil, auth.StatusUnauthenticated
		})
		return err
	}

	if !m.applyIfCurrent(opLogin, seq, func(s *auth.Session) {
		s.Token = res.Token
		u := res.User
		s.User = &u
		s.Status = auth.StatusAuthenticated
	}) {
		return nil
	}

	m.persist(ctx, res.Token, res.User)
	m.navigate(m.client.Config().DashboardDestination)
	return nil
}

// Logout tears down the session. The network logout is best effort: its
// failure is logged and counted but never surfaced, and local state is
// cleared unconditionally either way. Logout cannot fail from the caller's
// point of view.
func (m *Manager) Logout(ctx context.Context) {
	token := m.storedToken(ctx)
	if token != "" {
		if err := m.client.API().Logout(auth.WithToken(ctx, token)); err != nil {
			m.metrics.RecordLogoutAPIFailure()
			m.logger.Warn("logout API call failed, clearing local state anyway", "error", err)
		}
	}

	if store := m.client.Store(); store != nil {
		if err := store.Clear(ctx); err != nil {
			m.logger.Warn("clearing credential store failed", "error", err)
		}
	}
	m.transition(func(s *auth.Session) {
		s.Token, s.User, s.Status = "", nil, auth.StatusUnauthenticated
	})
	m.logger.Info("logged out")
	m.navigate(m.client.Config().LoginDestination)
}

// storedToken prefers the persisted token, falling back to the in-memory
// one when no store is configured.
func (m *Manager) storedToken(ctx context.Context) string {
	if store := m.client.Store(); store != nil {
		token, _, ok := store.Load(ctx)
		if ok {
			return token
		}
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Token
}

// persist mirrors the authenticated pair into the credential store.
// A storage failure downgrades to a warning: the in-memory session is
// authoritative for this run.
func (m *Manager) persist(ctx context.Context, token string, user auth.User) {
	store := m.client.Store()
	if store == nil {
		return
	}
	if err := store.Save(ctx, token, user); err != nil {
		m.logger.Warn("persisting credentials failed", "error", err)
	}
}

// teardownIfCurrent clears both memory and storage after a failed
// validation, unless a newer check has superseded this one.
func (m *Manager) teardownIfCurrent(ctx context.Context, op opKind, seq uint64) {
	applied := m.applyIfCurrent(op, seq, func(s *auth.Session) {
		s.Token, s.User, s.Status = "", nil, auth.StatusUnauthenticated
	})
	if !applied {
		return
	}
	if store := m.client.Store(); store != nil {
		if err := store.Clear(ctx); err != nil {
			m.logger.Warn("clearing credential store failed", "error", err)
		}
	}
}

func (m *Manager) navigate(dest auth.Destination) {
	if nav := m.client.Navigator(); nav != nil {
		nav.Navigate(dest)
	}
}

// begin records a new outstanding call of the given kind and returns its
// sequence number.
func (m *Manager) begin(op opKind) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[op]++
	return m.seq[op]
}

// applyIfCurrent applies mutate and notifies subscribers only when seq is
// still the latest issued for op, discarding transitions from superseded
// responses. It reports whether the transition was applied.
func (m *Manager) applyIfCurrent(op opKind, seq uint64, mutate func(*auth.Session)) bool {
	m.mu.Lock()
	if m.seq[op] != seq {
		m.mu.Unlock()
		return false
	}
	mutate(&m.session)
	snapshot := m.snapshotLocked()
	subs := m.subscribersLocked()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return true
}

// transition applies mutate unconditionally and notifies subscribers.
func (m *Manager) transition(mutate func(*auth.Session)) {
	m.mu.Lock()
	mutate(&m.session)
	snapshot := m.snapshotLocked()
	subs := m.subscribersLocked()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func (m *Manager) snapshotLocked() auth.Session {
	s := m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (m *Manager) subscribersLocked() []func(auth.Session) {
	subs := make([]func(auth.Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}
