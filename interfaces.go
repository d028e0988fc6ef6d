package auth

import "context"

// CredentialStore persists the bearer token and user profile as a single
// logical unit. The session manager is the only writer; everything else
// observes credentials through the manager's published state.
// Implementations: credstore/ (file, Redis), fake/ (testing).
type CredentialStore interface {
	// Save durably stores the token and its matching user together.
	Save(ctx context.Context, token string, user User) error

	// Load returns the stored record. ok is false when no record exists or
	// the stored data is unreadable; a partial or corrupt record reads as
	// empty, never as an error.
	Load(ctx context.Context) (token string, user User, ok bool)

	// Clear removes both fields unconditionally. Idempotent.
	Clear(ctx context.Context) error
}

// AuthAPI issues authentication requests against the backend and normalizes
// the heterogeneous response envelopes into canonical results. All errors it
// returns are *Error values from this package.
// Implementations: api/ (HTTP), fake/ (testing).
type AuthAPI interface {
	// Login exchanges credentials for a token and user profile.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// Logout invalidates the server-side session. Best effort: callers must
	// treat a failure as non-fatal and tear down local state regardless.
	Logout(ctx context.Context) error

	// CurrentUser returns the profile for the current bearer token. When no
	// token is available it fails with KindUnauthenticated without making a
	// network call.
	CurrentUser(ctx context.Context) (*User, error)

	// Register creates an account and returns the same result shape as Login.
	Register(ctx context.Context, username, email, password string) (*LoginResult, error)
}

// Navigator performs UI navigation on behalf of the session manager, keeping
// the transport client free of UI concerns.
type Navigator interface {
	Navigate(dest Destination)
}

// NavigatorFunc adapts a plain function to the Navigator interface.
type NavigatorFunc func(Destination)

// Navigate calls f(dest).
func (f NavigatorFunc) Navigate(dest Destination) { f(dest) }
