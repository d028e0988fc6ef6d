// Package metrics provides Prometheus metrics for session operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the session lifecycle.
type Metrics struct {
	enabled bool

	// Login metrics
	loginAttemptsTotal prometheus.Counter
	loginFailuresTotal *prometheus.CounterVec

	// Token validation metrics
	validationsTotal *prometheus.CounterVec

	// Logout metrics
	logoutAPIFailuresTotal prometheus.Counter

	// Route guard metrics
	guardDecisionsTotal *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.loginAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_login_attempts_total",
		Help: "Total login attempts",
	})

	m.loginFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_failures_total",
		Help: "Total login failures",
	}, []string{"kind"})

	m.validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_validations_total",
		Help: "Total token validations",
	}, []string{"result"})

	m.logoutAPIFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_logout_api_failures_total",
		Help: "Total logout API calls that failed while local state was still cleared",
	})

	m.guardDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_guard_decisions_total",
		Help: "Total route guard decisions",
	}, []string{"decision"})

	return m
}

// RecordLoginAttempt increments the login attempt counter.
func (m *Metrics) RecordLoginAttempt() {
	if !m.enabled {
		return
	}
	m.loginAttemptsTotal.Inc()
}

// RecordLoginFailure increments the login failure counter for an error kind.
func (m *Metrics) RecordLoginFailure(kind string) {
	if !m.enabled {
		return
	}
	m.loginFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordValidation increments the validation counter for a result:
// "authenticated", "unauthenticated", "no_token", or "expired_local".
func (m *Metrics) RecordValidation(result string) {
	if !m.enabled {
		return
	}
	m.validationsTotal.WithLabelValues(result).Inc()
}

// RecordLogoutAPIFailure counts a failed network logout. Local teardown
// still happens; this only tracks the soft failure.
func (m *Metrics) RecordLogoutAPIFailure() {
	if !m.enabled {
		return
	}
	m.logoutAPIFailuresTotal.Inc()
}

// RecordGuardDecision increments the guard decision counter.
func (m *Metrics) RecordGuardDecision(decision string) {
	if !m.enabled {
		return
	}
	m.guardDecisionsTotal.WithLabelValues(decision).Inc()
}
