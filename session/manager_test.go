package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/dugoutlabs/auth-go"
	"github.com/dugoutlabs/auth-go/fake"
	"github.com/dugoutlabs/auth-go/session"
)

func testUser() auth.User {
	return auth.User{ID: "u1", Username: "slugger", Email: "slugger@example.com", Role: "user"}
}

func newManager(t *testing.T, b *fake.Backend, opts ...session.Option) *session.Manager {
	t.Helper()
	return session.New(b.Client(auth.Config{}), opts...)
}

// waitSettled polls until the session leaves its transient states.
func waitSettled(t *testing.T, m *session.Manager) auth.Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := m.Session(); s.Status.Settled() {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session never settled, status = %v", m.Session().Status)
	return auth.Session{}
}

func TestInitialize_StoredSessionValidates(t *testing.T) {
	stored := testUser()
	stored.Email = "stale@example.com" // server copy wins over this
	server := testUser()

	b := fake.New(
		fake.WithStoredSession("tok-abc", stored),
		fake.WithValidToken("tok-abc", server),
	)
	m := newManager(t, b)

	m.Initialize(context.Background())
	s := waitSettled(t, m)

	if s.Status != auth.StatusAuthenticated {
		t.Fatalf("status = %v, want authenticated", s.Status)
	}
	if s.User == nil || s.User.Email != server.Email {
		t.Errorf("user = %+v, want server profile %+v", s.User, server)
	}
}

func TestInitialize_RehydratesTentativeUserImmediately(t *testing.T) {
	b := fake.New(fake.WithSession("tok-abc", testUser()))
	m := newManager(t, b)

	m.Initialize(context.Background())

	// Before the async check settles, the stored user is already visible so
	// the UI can render provisionally.
	s := m.Session()
	if s.Status == auth.StatusUnknown {
		t.Error("Initialize must move the session out of unknown synchronously")
	}
	if s.Status == auth.StatusAuthenticating && s.User == nil {
		t.Error("rehydrated session should carry the tentative user")
	}
}

func TestInitialize_RevokedTokenTearsDown(t *testing.T) {
	// Stored but unknown to the server: validation comes back unauthorized.
	b := fake.New(fake.WithStoredSession("tok-stale", testUser()))
	m := newManager(t, b)

	m.Initialize(context.Background())
	s := waitSettled(t, m)

	if s.Status != auth.StatusUnauthenticated {
		t.Fatalf("status = %v, want unauthenticated", s.Status)
	}
	if s.User != nil || s.Token != "" {
		t.Errorf("session not cleared: %+v", s)
	}
	if !b.Store.Empty() {
		t.Error("credential store should be empty after teardown")
	}
}

func TestInitialize_EmptyStoreSettlesWithoutNetwork(t *testing.T) {
	b := fake.New()
	m := newManager(t, b)

	m.Initialize(context.Background())
	s := waitSettled(t, m)

	if s.Status != auth.StatusUnauthenticated {
		t.Fatalf("status = %v, want unauthenticated", s.Status)
	}
	if b.API.CurrentUserCalls() != 0 {
		t.Errorf("CurrentUser calls = %d, want 0", b.API.CurrentUserCalls())
	}
}

func TestCheckAuth_NoToken(t *testing.T) {
	b := fake.New()
	m := newManager(t, b)

	if m.CheckAuth(context.Background()) {
		t.Error("CheckAuth() = true with no token, want false")
	}
	if b.API.CurrentUserCalls() != 0 {
		t.Errorf("CurrentUser calls = %d, want 0", b.API.CurrentUserCalls())
	}
	if m.Session().Status != auth.StatusUnauthenticated {
		t.Errorf("status = %v, want unauthenticated", m.Session().Status)
	}
}

func TestCheckAuth_ValidToken(t *testing.T) {
	b := fake.New(fake.WithSession("tok-abc", testUser()))
	m := newManager(t, b)

	if !m.CheckAuth(context.Background()) {
		t.Fatal("CheckAuth() = false, want true")
	}

	s := m.Session()
	if !s.Authenticated() {
		t.Fatalf("session = %+v, want authenticated", s)
	}
	if s.Token != "tok-abc" {
		t.Errorf("token = %q, want tok-abc", s.Token)
	}
}

func TestCheckAuth_NetworkFailureTearsDown(t *testing.T) {
	b := fake.New(fake.WithSession("tok-abc", testUser()))
	b.API.SetCurrentUserError(auth.NewError(auth.KindNetwork, "Network error. Please check your connection."))
	m := newManager(t, b)

	if m.CheckAuth(context.Background()) {
		t.Error("CheckAuth() = true on network failure, want false")
	}
	if !b.Store.Empty() {
		t.Error("credential store should be cleared on any validation failure")
	}
	if m.Session().Status != auth.StatusUnauthenticated {
		t.Errorf("status = %v, want unauthenticated", m.Session().Status)
	}
}

func TestCheckAuth_LocallyExpiredTokenSkipsNetwork(t *testing.T) {
	b := fake.New(fake.WithSession("tok-abc", testUser()))
	m := newManager(t, b, session.WithExpiryCheck(func(string) bool { return true }))

	if m.CheckAuth(context.Background()) {
		t.Error("CheckAuth() = true for expired token, want false")
	}
	if b.API.CurrentUserCalls() != 0 {
		t.Errorf("CurrentUser calls = %d, want 0", b.API.CurrentUserCalls())
	}
	if !b.Store.Empty() {
		t.Error("credential store should be cleared")
	}
}

func TestLogin_Success(t *testing.T) {
	b := fake.New(fake.WithUser(testUser(), "hunter2"))
	m := newManager(t, b)

	if err := m.Login(context.Background(), "slugger", "hunter2"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	s := m.Session()
	if !s.Authenticated() {
		t.Fatalf("session = %+v, want authenticated", s)
	}
	if b.Store.Empty() {
		t.Error("credentials should be persisted after login")
	}
	if b.Nav.Last() != "/dashboard" {
		t.Errorf("navigated to %q, want /dashboard", b.Nav.Last())
	}
}

func TestLogin_EmptyUsernameIsValidationError(t *testing.T) {
	b := fake.New(fake.WithUser(testUser(), "hunter2"))
	m := newManager(t, b)

	err := m.Login(context.Background(), "", "hunter2")
	if auth.KindOf(err) != auth.KindValidation {
		t.Fatalf("kind = %v, want validation", auth.KindOf(err))
	}
	if b.API.LoginCalls() != 0 {
		t.Errorf("Login API calls = %d, want 0", b.API.LoginCalls())
	}
}

func TestLogin_EmptyPasswordIsValidationError(t *testing.T) {
	b := fake.New()
	m := newManager(t, b)

	err := m.Login(context.Background(), "slugger", "")
	if auth.KindOf(err) != auth.KindValidation {
		t.Fatalf("kind = %v, want validation", auth.KindOf(err))
	}
	if b.API.LoginCalls() != 0 {
		t.Errorf("Login API calls = %d, want 0", b.API.LoginCalls())
	}
}

func TestLogin_RejectedLeavesUnauthenticated(t *testing.T) {
	b := fake.New(fake.WithUser(testUser(), "hunter2"))
	m := newManager(t, b)

	err := m.Login(context.Background(), "slugger", "wrong")
	if auth.KindOf(err) != auth.KindRejected {
		t.Fatalf("kind = %v, want rejected", auth.KindOf(err))
	}
	if m.Session().Status != auth.StatusUnauthenticated {
		t.Errorf("status = %v, want unauthenticated", m.Session().Status)
	}
	if !b.Store.Empty() {
		t.Error("nothing should be persisted on a rejected login")
	}
	if len(b.Nav.Destinations()) != 0 {
		t.Error("no navigation should happen on a failed login")
	}
}

func TestLogin_TokenWithoutUserIsMalformed(t *testing.T) {
	b := fake.New()
	b.API.SetLoginResult(&auth.LoginResult{Token: "tok-abc"}) // no user

	m := newManager(t, b)
	err := m.Login(context.Background(), "slugger", "hunter2")
	if auth.KindOf(err) != auth.KindMalformed {
		t.Fatalf("kind = %v, want malformed", auth.KindOf(err))
	}
	if m.Session().Status != auth.StatusUnauthenticated {
		t.Errorf("status = %v, want unauthenticated", m.Session().Status)
	}
	if b.Store.SaveCalls() != 0 {
		t.Errorf("Save calls = %d, want 0", b.Store.SaveCalls())
	}
}

func TestLogin_SupersededResponseIsDiscarded(t *testing.T) {
	b := fake.New(fake.WithUser(testUser(), "hunter2"))
	m := newManager(t, b)

	gate := make(chan struct{})
	b.API.SetLoginGate(gate)

	// First login stalls in flight.
	done := make(chan error, 1)
	go func() { done <- m.Login(context.Background(), "slugger", "hunter2") }()

	// Give the first call time to enter the gate, then let a second login
	// win the race.
	time.Sleep(20 * time.Millisecond)
	if err := m.Login(context.Background(), "slugger", "hunter2"); err != nil {
		t.Fatalf("second Login() error: %v", err)
	}
	second := m.Session()

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first Login() error: %v", err)
	}

	// The first call's late response must not have replaced the state the
	// second call produced.
	if got := m.Session(); got.Token != second.Token {
		t.Errorf("token = %q, want the second login's %q", got.Token, second.Token)
	}
	if got := b.Nav.Destinations(); len(got) != 1 {
		t.Errorf("navigations = %v, want exactly one from the winning login", got)
	}
}

func TestLogout_AlwaysClearsLocally(t *testing.T) {
	b := fake.New(fake.WithSession("tok-abc", testUser()))
	b.API.SetLogoutError(auth.NewError(auth.KindNetwork, "Network error. Please check your connection."))
	m := newManager(t, b)

	if !m.CheckAuth(context.Background()) {
		t.Fatal("setup: CheckAuth should succeed")
	}

	m.Logout(context.Background())

	s := m.Session()
	if s.Status != auth.StatusUnauthenticated || s.User != nil || s.Token != "" {
		t.Errorf("session = %+v, want cleared and unauthenticated", s)
	}
	if !b.Store.Empty() {
		t.Error("credential store should be empty even when the API logout failed")
	}
	if b.Nav.Last() != "/login" {
		t.Errorf("navigated to %q, want /login", b.Nav.Last())
	}
}

func TestLogout_WithoutSessionIsSafe(t *testing.T) {
	b := fake.New()
	m := newManager(t, b)

	m.Logout(context.Background())

	if m.Session().Status != auth.StatusUnauthenticated {
		t.Errorf("status = %v, want unauthenticated", m.Session().Status)
	}
	if b.API.LogoutCalls() != 0 {
		t.Errorf("Logout API calls = %d, want 0 without a token", b.API.LogoutCalls())
	}
}

func TestRegister_SignsIn(t *testing.T) {
	b := fake.New()
	m := newManager(t, b)

	if err := m.Register(context.Background(), "rookie", "rookie@example.com", "hunter2"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	s := m.Session()
	if !s.Authenticated() || s.User.Username != "rookie" {
		t.Fatalf("session = %+v, want authenticated rookie", s)
	}
	if b.Nav.Last() != "/dashboard" {
		t.Errorf("navigated to %q, want /dashboard", b.Nav.Last())
	}
}

func TestRegister_MissingFieldIsValidationError(t *testing.T) {
	b := fake.New()
	m := newManager(t, b)

	err := m.Register(context.Background(), "rookie", "", "hunter2")
	if auth.KindOf(err) != auth.KindValidation {
		t.Fatalf("kind = %v, want validation", auth.KindOf(err))
	}
	if b.API.RegisterCalls() != 0 {
		t.Errorf("Register API calls = %d, want 0", b.API.RegisterCalls())
	}
}

func TestSubscribe_NotifiesOnTransitions(t *testing.T) {
	b := fake.New(fake.WithUser(testUser(), "hunter2"))
	m := newManager(t, b)

	var seen []auth.Status
	cancel := m.Subscribe(func(s auth.Session) { seen = append(seen, s.Status) })
	defer cancel()

	if err := m.Login(context.Background(), "slugger", "hunter2"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	if len(seen) < 2 {
		t.Fatalf("transitions seen = %v, want authenticating then authenticated", seen)
	}
	if seen[0] != auth.StatusAuthenticating {
		t.Errorf("first transition = %v, want authenticating", seen[0])
	}
	if seen[len(seen)-1] != auth.StatusAuthenticated {
		t.Errorf("last transition = %v, want authenticated", seen[len(seen)-1])
	}
}

func TestSubscribe_CancelStopsNotifications(t *testing.T) {
	b := fake.New(fake.WithUser(testUser(), "hunter2"))
	m := newManager(t, b)

	calls := 0
	cancel := m.Subscribe(func(auth.Session) { calls++ })
	cancel()

	if err := m.Login(context.Background(), "slugger", "hunter2"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if calls != 0 {
		t.Errorf("notifications after cancel = %d, want 0", calls)
	}
}

func TestSession_ReturnsCopy(t *testing.T) {
	b := fake.New(fake.WithSession("tok-abc", testUser()))
	m := newManager(t, b)
	m.CheckAuth(context.Background())

	s := m.Session()
	s.User.Username = "tampered"

	if m.Session().User.Username != "slugger" {
		t.Error("mutating a snapshot must not affect manager state")
	}
}
