// Package credstore provides CredentialStore implementations.
//
// The store is a dumb persistence layer: it never validates, never touches
// the network, and always fails open to "no session" on unreadable data.
// The session manager is its only writer.
package credstore

import "github.com/dugoutlabs/auth-go"

// compile-time checks
var (
	_ auth.CredentialStore = (*FileStore)(nil)
	_ auth.CredentialStore = (*RedisStore)(nil)
)

// record is the persisted shape: the bearer token and its matching user
// profile, always written and cleared as one unit.
type record struct {
	Token string    `json:"token"`
	User  auth.User `json:"user"`
}
