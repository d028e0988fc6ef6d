// Package ginmw provides Gin HTTP middleware applying route-guard decisions
// to server-rendered navigation.
//
// The middleware consumes session state through the manager's published
// snapshots and never touches the credential store directly.
package ginmw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dugoutlabs/auth-go"
	"github.com/dugoutlabs/auth-go/guard"
	"github.com/dugoutlabs/auth-go/metrics"
	"github.com/dugoutlabs/auth-go/session"
)

// KeyUser is the gin context key holding the authenticated *auth.User.
const KeyUser = "auth_user"

// GuardOption configures the Guard middleware.
type GuardOption func(*guardConfig)

type guardConfig struct {
	metrics *metrics.Metrics
}

// WithMetrics records every guard decision.
func WithMetrics(m *metrics.Metrics) GuardOption {
	return func(cfg *guardConfig) { cfg.metrics = m }
}

// Guard returns Gin middleware that evaluates every request path against
// the route guard. Redirect decisions become 302s to the client's
// configured destinations; Defer answers 503 with Retry-After so the shell
// retries once the startup check settles instead of flash-redirecting.
func Guard(mgr *session.Manager, g *guard.Guard, client *auth.Client, opts ...GuardOption) gin.HandlerFunc {
	cfg := &guardConfig{metrics: metrics.New(false)}
	for _, o := range opts {
		o(cfg)
	}

	return func(c *gin.Context) {
		s := mgr.Session()
		decision := g.Evaluate(s.Status, auth.Destination(c.Request.URL.Path))
		cfg.metrics.RecordGuardDecision(decision.String())

		switch decision {
		case auth.Defer:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		case auth.RedirectToLogin:
			c.Redirect(http.StatusFound, string(client.Config().LoginDestination))
			c.Abort()
		case auth.RedirectToDefault:
			c.Redirect(http.StatusFound, string(client.Config().DashboardDestination))
			c.Abort()
		default:
			if s.User != nil {
				c.Set(KeyUser, s.User)
			}
			c.Next()
		}
	}
}

// GetUser returns the authenticated user from the gin context, or nil.
func GetUser(c *gin.Context) *auth.User {
	v, ok := c.Get(KeyUser)
	if !ok {
		return nil
	}
	u, _ := v.(*auth.User)
	return u
}
