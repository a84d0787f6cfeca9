package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oauth_broker"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeCached  = "cached"
)

// Metrics holds the broker and pipeline collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	tokenFetches     *prometheus.CounterVec
	refreshFallbacks prometheus.Counter
	inFlightJoins    prometheus.Counter
	fetchDuration    *prometheus.HistogramVec
	requests         *prometheus.CounterVec
}

// New registers the collectors on reg. Collectors that are already
// registered are reused, so several brokers may share one registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tokenFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_fetches_total",
			Help:      "Token requests resolved by the broker, by grant type and outcome.",
		}, []string{"grant_type", "outcome"}),
		refreshFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_fallbacks_total",
			Help:      "Refresh grants that failed and fell back to a new grant.",
		}),
		inFlightJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inflight_joins_total",
			Help:      "Callers that joined a token fetch already in flight.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_endpoint_duration_seconds",
			Help:      "Token endpoint round trip time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"grant_type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_requests_total",
			Help:      "Resource pipeline requests by method and status class.",
		}, []string{"method", "status"}),
	}

	var err error
	m.tokenFetches, err = register(reg, m.tokenFetches)
	if err != nil {
		return nil, err
	}
	if m.refreshFallbacks, err = register(reg, m.refreshFallbacks); err != nil {
		return nil, err
	}
	if m.inFlightJoins, err = register(reg, m.inFlightJoins); err != nil {
		return nil, err
	}
	if m.fetchDuration, err = register(reg, m.fetchDuration); err != nil {
		return nil, err
	}
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) TokenFetched(grantType, outcome string) {
	if m == nil {
		return
	}
	m.tokenFetches.WithLabelValues(grantType, outcome).Inc()
}

func (m *Metrics) RefreshFellBack() {
	if m == nil {
		return
	}
	m.refreshFallbacks.Inc()
}

func (m *Metrics) JoinedInFlight() {
	if m == nil {
		return
	}
	m.inFlightJoins.Inc()
}

func (m *Metrics) ObserveEndpoint(grantType string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(grantType).Observe(seconds)
}

// RequestDone counts a pipeline request. status is the HTTP status code,
// or 0 when no response was received.
func (m *Metrics) RequestDone(method string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "none"
	}
}
