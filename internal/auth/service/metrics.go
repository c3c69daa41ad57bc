package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "techpost_auth"

// Metrics are the counters the session code reports to. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Logins             *prometheus.CounterVec
	Reissues           *prometheus.CounterVec
	Logouts            prometheus.Counter
	Signups            prometheus.Counter
	FederatedLogins    *prometheus.CounterVec
	RevocationFailures prometheus.Counter
	Housekeeping       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "logins_total",
			Help:      "Password logins by result.",
		}, []string{"result"}),
		Reissues: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reissues_total",
			Help:      "Token reissue attempts by result.",
		}, []string{"result"}),
		Logouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "logouts_total",
			Help:      "Logout requests.",
		}),
		Signups: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "signups_total",
			Help:      "Accounts created through signup.",
		}),
		FederatedLogins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "federated_logins_total",
			Help:      "Federated logins by provider and whether the account was provisioned.",
		}, []string{"provider", "provisioned"}),
		RevocationFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "revocation_failures_total",
			Help:      "Revocation record deletes that failed and were swallowed.",
		}),
		Housekeeping: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "housekeeping_deleted_total",
			Help:      "Expired revocation records removed by housekeeping.",
		}),
	}
}

func (m *Metrics) login(result string) {
	if m != nil {
		m.Logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) reissue(result string) {
	if m != nil {
		m.Reissues.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) logout() {
	if m != nil {
		m.Logouts.Inc()
	}
}

func (m *Metrics) signup() {
	if m != nil {
		m.Signups.Inc()
	}
}

func (m *Metrics) federated(provider string, provisioned bool) {
	if m == nil {
		return
	}
	p := "false"
	if provisioned {
		p = "true"
	}
	m.FederatedLogins.WithLabelValues(provider, p).Inc()
}

func (m *Metrics) revocationFailure() {
	if m != nil {
		m.RevocationFailures.Inc()
	}
}

func (m *Metrics) swept(n int) {
	if m != nil && n > 0 {
		m.Housekeeping.Add(float64(n))
	}
}
