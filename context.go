package auth

import "context"

type ctxKey string

const (
	ctxKeyUser  ctxKey = "auth_user"
	ctxKeyToken ctxKey = "auth_token"
)

// WithUser stores the authenticated user in the context.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// UserFromContext extracts the authenticated user from the context.
func UserFromContext(ctx context.Context) *User {
	v, _ := ctx.Value(ctxKeyUser).(*User)
	return v
}

// WithToken stores the bearer token in the context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKeyToken, token)
}

// TokenFromContext extracts the bearer token from the context.
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyToken).(string)
	return v
}
