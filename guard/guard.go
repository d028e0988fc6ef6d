// Package guard decides whether a navigation is permitted given session
// state.
//
// The guard is a pure function over status and destination: it performs no
// I/O and triggers no side effects. Applying its decisions to an actual
// router is the job of the middleware adapters.
package guard

import "github.com/dugoutlabs/auth-go"

// Guard evaluates navigations against a login destination and a set of
// public destinations that need no session.
type Guard struct {
	loginDest auth.Destination
	public    map[auth.Destination]bool
}

// Option configures the Guard.
type Option func(*Guard)

// WithPublic marks destinations reachable without a session, e.g. a landing
// page or health endpoint. The login destination is always public.
func WithPublic(dests ...auth.Destination) Option {
	return func(g *Guard) {
		for _, d := range dests {
			g.public[d] = true
		}
	}
}

// New creates a guard that treats loginDest as the login page and every
// other destination as protected unless marked public.
func New(loginDest auth.Destination, opts ...Option) *Guard {
	g := &Guard{
		loginDest: loginDest,
		public:    make(map[auth.Destination]bool),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Evaluate returns the decision for a navigation to dest under status.
//
// While the session is still settling the decision is always Defer: the
// consumer renders a neutral placeholder and asks again, which prevents a
// flash-redirect to the login page on reload while the startup check is in
// flight. Once settled: unauthenticated users requesting any protected
// destination are redirected to login; authenticated users requesting the
// login destination are redirected to the default; everything else is
// allowed.
func (g *Guard) Evaluate(status auth.Status, dest auth.Destination) auth.Decision {
	if !status.Settled() {
		return auth.Defer
	}

	authenticated := status == auth.StatusAuthenticated
	if dest == g.loginDest {
		if authenticated {
			return auth.RedirectToDefault
		}
		return auth.Allow
	}
	if g.public[dest] {
		return auth.Allow
	}
	if !authenticated {
		return auth.RedirectToLogin
	}
	return auth.Allow
}
