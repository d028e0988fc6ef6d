// Package echomw provides Echo HTTP middleware applying route-guard
// decisions, mirroring the gin adapter for Echo-based shells.
package echomw

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dugoutlabs/auth-go"
	"github.com/dugoutlabs/auth-go/guard"
	"github.com/dugoutlabs/auth-go/metrics"
	"github.com/dugoutlabs/auth-go/session"
)

// KeyUser is the echo context key holding the authenticated *auth.User.
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

// Guard returns Echo middleware that evaluates every request path against
// the route guard, with the same decision mapping as the gin adapter.
func Guard(mgr *session.Manager, g *guard.Guard, client *auth.Client, opts ...GuardOption) echo.MiddlewareFunc {
	cfg := &guardConfig{metrics: metrics.New(false)}
	for _, o := range opts {
		o(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := mgr.Session()
			decision := g.Evaluate(s.Status, auth.Destination(c.Request().URL.Path))
			cfg.metrics.RecordGuardDecision(decision.String())

			switch decision {
			case auth.Defer:
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			case auth.RedirectToLogin:
				return c.Redirect(http.StatusFound, string(client.Config().LoginDestination))
			case auth.RedirectToDefault:
				return c.Redirect(http.StatusFound, string(client.Config().DashboardDestination))
			default:
				if s.User != nil {
					c.Set(KeyUser, s.User)
				}
				return next(c)
			}
		}
	}
}

// GetUser returns the authenticated user from the echo context, or nil.
func GetUser(c echo.Context) *auth.User {
	u, _ := c.Get(KeyUser).(*auth.User)
	return u
}
