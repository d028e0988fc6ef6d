package auth

// Status describes the client's current belief about the session.
type Status int

const (
	// StatusUnknown means the startup check has not run yet.
	StatusUnknown Status = iota

	// StatusAuthenticating means a login or validation call is in flight.
	StatusAuthenticating

	// StatusAuthenticated means the backend has confirmed the session.
	StatusAuthenticated

	// StatusUnauthenticated means there is no valid session.
	StatusUnauthenticated

	// StatusError means the last transition failed in an unexpected way.
	// Session.Reason carries the cause.
	StatusError
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusError:
		return "error"
	default:
		return "invalid"
	}
}

// Settled reports whether the session has reached a stable decision.
// The route guard defers while the session is not settled.
func (s Status) Settled() bool {
	return s == StatusAuthenticated || s == StatusUnauthenticated
}

// User is the profile of an authenticated user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Session is the client's current belief about who is logged in and with
// what credential. In every settled state, User is non-nil if and only if
// Status is StatusAuthenticated. While the startup check is in flight a
// tentative user rehydrated from storage may be present, and Token may be
// present transiently during validation.
type Session struct {
	Token  string
	User   *User
	Status Status
	Reason string
}

// Authenticated reports whether the session holds a confirmed user.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// LoginResult is the normalized outcome of a successful login, regardless
// of which response envelope the backend used.
type LoginResult struct {
	Token string
	User  User
}

// Destination identifies a navigation target in the consuming UI,
// e.g. "/login" or "/dashboard".
type Destination string

// Decision is the route guard's verdict for a requested navigation.
type Decision int

const (
	// Allow lets the navigation proceed.
	Allow Decision = iota

	// Defer means the session is still settling; render a neutral
	// placeholder and decide again later. Never an immediate redirect.
	Defer

	// RedirectToLogin sends an unauthenticated user to the login destination.
	RedirectToLogin

	// RedirectToDefault sends an authenticated user away from the login
	// destination, to the default post-login destination.
	RedirectToDefault
)

// String returns a human-readable decision name.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Defer:
		return "defer"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToDefault:
		return "redirect_to_default"
	default:
		return "invalid"
	}
}
