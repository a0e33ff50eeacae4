// Package resilience provides circuit breakers shared across agents for
// every external dependency class: exchange, database, and message broker.
// It is factored out of the risk package because the breaker pool here is
// cross-cutting infrastructure, not a risk-validation concern.
package resilience

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// Service names for the three breaker classes every agent may exercise.
const (
	ServiceExchange = "exchange"
	ServiceDatabase = "database"
	ServiceBroker   = "broker"
)

// Settings holds circuit breaker configuration for a single dependency class.
type Settings struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxReqs uint32
	CountInterval   time.Duration
}

var (
	defaultSettings = map[string]Settings{
		ServiceExchange: {MinRequests: 5, FailureRatio: 0.6, OpenTimeout: 30 * time.Second, HalfOpenMaxReqs: 3, CountInterval: 10 * time.Second},
		ServiceDatabase: {MinRequests: 10, FailureRatio: 0.6, OpenTimeout: 15 * time.Second, HalfOpenMaxReqs: 5, CountInterval: 10 * time.Second},
		ServiceBroker:   {MinRequests: 5, FailureRatio: 0.5, OpenTimeout: 20 * time.Second, HalfOpenMaxReqs: 3, CountInterval: 10 * time.Second},
	}
)

// Metrics holds the Prometheus series shared by every breaker instance in the
// process. It is registered once regardless of how many Manager values exist.
type Metrics struct {
	state    *prometheus.GaugeVec
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

func initMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			state: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
			}, []string{"service"}),
			requests: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "circuit_breaker_requests_total",
				Help: "Total number of requests through a circuit breaker",
			}, []string{"service", "result"}),
			failures: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "circuit_breaker_failures_total",
				Help: "Total number of failures tracked by a circuit breaker",
			}, []string{"service"}),
		}
	})
	return globalMetrics
}

// RecordRequest records a request outcome against the shared metrics.
func (m *Metrics) RecordRequest(service string, success bool) {
	result := "success"
	if !success {
		result = "failure"
		m.failures.WithLabelValues(service).Inc()
	}
	m.requests.WithLabelValues(service, result).Inc()
}

// Manager owns one gobreaker.CircuitBreaker per dependency class and exposes
// an Execute helper so callers never touch gobreaker directly.
type Manager struct {
	breakers map[string]*gobreaker.CircuitBreaker
	metrics  *Metrics
}

// NewManager builds a Manager with the given per-service overrides; any
// service name absent from overrides falls back to defaultSettings.
func NewManager(overrides map[string]Settings) *Manager {
	metrics := initMetrics()
	m := &Manager{breakers: make(map[string]*gobreaker.CircuitBreaker), metrics: metrics}

	for name, def := range defaultSettings {
		settings := def
		if o, ok := overrides[name]; ok {
			settings = o
		}
		m.breakers[name] = newBreaker(name, settings, m)
	}
	return m
}

// NewPassthroughManager returns a Manager whose breakers never trip, for use
// in tests that exercise downstream logic without resilience interference.
func NewPassthroughManager() *Manager {
	metrics := initMetrics()
	m := &Manager{breakers: make(map[string]*gobreaker.CircuitBreaker), metrics: metrics}
	neverTrip := func(counts gobreaker.Counts) bool { return false }
	for name := range defaultSettings {
		m.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name + "_passthrough",
			MaxRequests: 1000,
			Timeout:     time.Millisecond,
			ReadyToTrip: neverTrip,
		})
	}
	return m
}

func newBreaker(name string, s Settings, m *Manager) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenMaxReqs,
		Interval:    s.CountInterval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.updateMetrics(name, to)
		},
	})
}

func (m *Manager) updateMetrics(service string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateClosed:
		v = 0
	case gobreaker.StateOpen:
		v = 1
	case gobreaker.StateHalfOpen:
		v = 2
	}
	m.metrics.state.WithLabelValues(service).Set(v)
}

// Execute runs fn through the named dependency class's breaker, recording
// success/failure metrics regardless of outcome.
func (m *Manager) Execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	b, ok := m.breakers[service]
	if !ok {
		return fn()
	}
	result, err := b.Execute(fn)
	m.metrics.RecordRequest(service, err == nil)
	return result, err
}

// State reports the current state of the named breaker ("closed", "open",
// "half_open", or "" if the service is unknown).
func (m *Manager) State(service string) string {
	b, ok := m.breakers[service]
	if !ok {
		return ""
	}
	switch b.State() {
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}
