// Package metrics provides Prometheus counters for session activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dirsession"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	transitions *prometheus.CounterVec
	recoveries  *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	logins      *prometheus.CounterVec
	signups     *prometheus.CounterVec
}

// New registers the session counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_transitions_total",
				Help:      "Session state transitions",
			},
			[]string{"from", "to"},
		),
		recoveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recoveries_total",
				Help:      "Startup recovery passes by final state",
			},
			[]string{"state"},
		),
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_refreshes_total",
				Help:      "Access token refresh attempts",
			},
			[]string{"outcome"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Login attempts",
			},
			[]string{"outcome"},
		),
		signups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signups_total",
				Help:      "Signup attempts",
			},
			[]string{"outcome"},
		),
	}
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Recovery(state string) {
	if m == nil {
		return
	}
	m.recoveries.WithLabelValues(state).Inc()
}

func (m *Metrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome(ok)).Inc()
}

func (m *Metrics) Login(ok bool) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome(ok)).Inc()
}

func (m *Metrics) Signup(ok bool) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(outcome(ok)).Inc()
}
