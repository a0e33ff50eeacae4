// Package agent provides the generalized agent framework every one of the
// five pipeline agents (DataCollection, TechnicalAnalysis, Strategy,
// RiskManager, Execution) embeds: zero-or-one non-overlapping periodic
// job, one consumer task per subscribed topic, and a supervisory health
// loop, all under one errgroup so a programming-error panic/crash in any
// task tears the whole agent process down for the process supervisor to
// restart with a bounded crash loop.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ajitpratap0/tradingpipeline/internal/bus"
	"github.com/ajitpratap0/tradingpipeline/internal/protocol"
)

// TopicHandler processes one decoded message received on a subscribed
// topic. Handlers for distinct topics run concurrently; a handler that
// must serialize within itself (e.g. per-symbol state) owns that
// serialization internally.
type TopicHandler func(ctx context.Context, env *protocol.Envelope) error

// PeriodicJob is the agent's single recurring task, e.g. DataCollection's
// polling tick or Execution's SL/TP monitor sweep.
type PeriodicJob func(ctx context.Context) error

// Config configures one agent instance.
type Config struct {
	Name           string
	Type           string
	Version        string
	StepInterval   time.Duration // periodic job cadence; zero disables the job
	ShutdownGrace  time.Duration // bounded drain deadline on shutdown, default 30s
	HealthInterval time.Duration // supervisory health loop cadence, default 15s
	ConsumerMajor  uint64        // schema major version this build understands
}

type subscription struct {
	topic   string
	handler TopicHandler
}

// Agent supervises an agent process's subscriptions, periodic job, and
// health loop, and owns the bus connection and structured logger every
// handler receives.
type Agent struct {
	cfg     Config
	bus     *bus.Bus
	log     zerolog.Logger
	metrics *Metrics

	subs []subscription
	job  PeriodicJob

	sf      singleflight.Group
	jobSlot chan struct{}

	mu       sync.RWMutex
	healthy  bool
	lastErr  error
	startedAt time.Time
}

// New constructs an Agent. Call Subscribe/WithPeriodicJob to register work,
// then Run to start it.
func New(cfg Config, b *bus.Bus, log zerolog.Logger) *Agent {
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 30 * time.Second
	}
	if cfg.HealthInterval == 0 {
		cfg.HealthInterval = 15 * time.Second
	}
	if cfg.ConsumerMajor == 0 {
		cfg.ConsumerMajor = 1
	}

	return &Agent{
		cfg:     cfg,
		bus:     b,
		log:     log.With().Str("agent", cfg.Name).Str("agent_type", cfg.Type).Logger(),
		metrics: newMetrics(cfg.Name),
		jobSlot: make(chan struct{}, 1),
		healthy: true,
	}
}

// Subscribe registers handler for topic. Call before Run.
func (a *Agent) Subscribe(topic string, handler TopicHandler) *Agent {
	a.subs = append(a.subs, subscription{topic: topic, handler: handler})
	return a
}

// WithPeriodicJob registers the agent's single periodic job. Call before Run.
func (a *Agent) WithPeriodicJob(job PeriodicJob) *Agent {
	a.job = job
	return a
}

// Logger returns the agent's structured logger, for use by callers that
// build handlers/jobs outside this package.
func (a *Agent) Logger() zerolog.Logger {
	return a.log
}

// Publish publishes payload to topic as this agent, via the bus's wrapping.
func (a *Agent) Publish(ctx context.Context, topic string, payload interface{}) error {
	return a.bus.Publish(ctx, topic, a.cfg.Name, payload)
}

// Run starts every subscription, the periodic job (if any), and the health
// loop, and blocks until ctx is cancelled or a task returns a fatal error.
// On cancellation it gives in-flight work up to cfg.ShutdownGrace before
// forcing an exit.
func (a *Agent) Run(parent context.Context) error {
	a.startedAt = time.Now()
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	eg, egCtx := errgroup.WithContext(ctx)

	for _, s := range a.subs {
		s := s
		eg.Go(func() error { return a.runSubscription(egCtx, s) })
	}

	if a.job != nil && a.cfg.StepInterval > 0 {
		eg.Go(func() error { return a.runPeriodic(egCtx) })
	}

	eg.Go(func() error { return a.runHealthLoop(egCtx) })

	done := make(chan error, 1)
	go func() { done <- eg.Wait() }()

	select {
	case err := <-done:
		return err
	case <-parent.Done():
		a.log.Info().Dur("grace", a.cfg.ShutdownGrace).Msg("shutdown requested, draining in-flight work")
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(a.cfg.ShutdownGrace):
			return fmt.Errorf("agent %s: shutdown grace period exceeded", a.cfg.Name)
		}
	}
}

func (a *Agent) runSubscription(ctx context.Context, s subscription) error {
	consumerName := a.cfg.Name + "-" + s.topic
	sub, err := a.bus.Subscribe(ctx, s.topic, consumerName, func(hctx context.Context, env *protocol.Envelope) error {
		if err := protocol.CheckCompatible(env.SchemaVersion, a.cfg.ConsumerMajor); err != nil {
			a.log.Warn().Err(err).Str("topic", s.topic).Msg("rejecting incompatible schema version")
			return nil // reject hard but don't redeliver a message we can never understand
		}
		if err := s.handler(hctx, env); err != nil {
			a.metrics.handlerErrors.WithLabelValues(s.topic).Inc()
			a.recordError(err, false)
			return err
		}
		a.metrics.messagesHandled.WithLabelValues(s.topic).Inc()
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	<-ctx.Done()
	sub.Stop()
	return nil
}

// runPeriodic ticks the periodic job at StepInterval. Overlap is prevented
// with a non-blocking try-acquire on jobSlot (a tick that can't acquire the
// slot is skipped and logged); when a tick does acquire the slot it runs
// through singleflight so a future
// manually-triggered run (e.g. from a control-topic request) collapses into
// whichever execution is already in flight instead of running twice.
func (a *Agent) runPeriodic(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.StepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			select {
			case a.jobSlot <- struct{}{}:
				go a.runJobOnce(ctx)
			default:
				a.metrics.jobSkipped.Inc()
				a.log.Warn().Msg("periodic job still running, skipping this tick")
			}
		}
	}
}

func (a *Agent) runJobOnce(ctx context.Context) {
	defer func() { <-a.jobSlot }()

	start := time.Now()
	_, err, _ := a.sf.Do("periodic-job", func() (interface{}, error) {
		return nil, a.job(ctx)
	})
	a.metrics.jobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		a.metrics.jobErrors.Inc()
		a.recordError(err, false)
		a.log.Error().Err(err).Msg("periodic job failed")
	}
}

func (a *Agent) runHealthLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.mu.RLock()
			healthy := a.healthy
			a.mu.RUnlock()

			if healthy {
				a.metrics.status.Set(1)
			} else {
				a.metrics.status.Set(0)
			}
			a.metrics.uptime.Set(time.Since(a.startedAt).Seconds())
		}
	}
}

// recordError marks the last non-recoverable error and publishes it to the
// shared diagnostics topic so operators can observe it via the diagnostic
// feed regardless of which agent produced it. fatal indicates a
// programming-error/invariant
// violation that should flip the health probe unhealthy; transient/domain
// errors recorded by handlers do not.
func (a *Agent) recordError(err error, fatal bool) {
	a.mu.Lock()
	a.lastErr = err
	if fatal {
		a.healthy = false
	}
	a.mu.Unlock()

	evt := protocol.AgentErrorEvent{
		Agent:     a.cfg.Name,
		Err:       err.Error(),
		Fatal:     fatal,
		Timestamp: time.Now(),
	}
	// Best effort: a diagnostics publish failure must not cascade into the
	// handler's own error path.
	bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if pubErr := a.bus.Publish(bgCtx, protocol.TopicDiagnosticsError, a.cfg.Name, evt); pubErr != nil {
		a.log.Error().Err(pubErr).Msg("failed to publish agent_error diagnostic event")
	}
}

// Healthy reports the last health-probe state, for the /healthz endpoint.
func (a *Agent) Healthy() (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.healthy, a.lastErr
}
