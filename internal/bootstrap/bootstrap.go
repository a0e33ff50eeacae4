// Package bootstrap assembles the startup sequence every agent binary
// runs before entering its own domain loop: configuration, structured
// logging, secrets, the durable store, the message bus, and the
// Prometheus/health HTTP server. It generalizes cmd/orchestrator/main.go's
// Initialize/Run/Shutdown shape across five independent agent processes
// instead of one monolith.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ajitpratap0/tradingpipeline/internal/bus"
	"github.com/ajitpratap0/tradingpipeline/internal/config"
	"github.com/ajitpratap0/tradingpipeline/internal/metrics"
	"github.com/ajitpratap0/tradingpipeline/internal/resilience"
	"github.com/ajitpratap0/tradingpipeline/internal/secrets"
	"github.com/ajitpratap0/tradingpipeline/internal/store/relational"
)

// Context bundles every shared dependency an agent main wires into its
// internal/agent.Agent and domain engine.
type Context struct {
	Name     string
	Config   *config.Config
	Creds    *secrets.Credentials
	Log      zerolog.Logger
	Bus      *bus.Bus
	Store    *relational.Store
	Metrics  *metrics.Server
	Redis    *redis.Client
	Breakers *resilience.Manager
}

// Setup loads configuration, wires structured logging, resolves secrets,
// opens and migrates the relational store, and connects the bus.
// Metrics.SetHealthCheck must still be called, then Metrics.Start,
// once the caller has an agent.Agent to probe — mirroring
// internal/metrics.Server's own "call before Start" contract.
func Setup(ctx context.Context, agentName, configPath string) (*Context, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := newLogger(agentName, cfg.App.LogLevel)

	creds, err := secrets.Load(ctx, secrets.Config{
		Enabled:    cfg.Vault.Enabled,
		Address:    cfg.Vault.Address,
		AuthMethod: cfg.Vault.AuthMethod,
		MountPath:  cfg.Vault.MountPath,
		SecretPath: cfg.Vault.SecretPath,
	})
	if err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	dsn := creds.DatabaseURL
	if dsn == "" {
		dsn = cfg.Database.GetDSN()
	}
	store, err := relational.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	natsURL := creds.NATSURL
	if natsURL == "" {
		natsURL = cfg.NATS.URL
	}
	busCfg := bus.DefaultConfig()
	busCfg.URL = natsURL
	if cfg.NATS.StreamPrefix != "" {
		busCfg.StreamPrefix = cfg.NATS.StreamPrefix + "."
	}
	b, err := bus.Connect(ctx, busCfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect bus: %w", err)
	}

	metricsSrv := metrics.NewServer(config.GetAgentMetricsPort(agentName), log)

	redisPassword := creds.RedisPassword
	if redisPassword == "" {
		redisPassword = cfg.Redis.Password
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetRedisAddr(),
		Password: redisPassword,
		DB:       cfg.Redis.DB,
	})

	return &Context{
		Name:     agentName,
		Config:   cfg,
		Creds:    creds,
		Log:      log,
		Bus:      b,
		Store:    store,
		Metrics:  metricsSrv,
		Redis:    redisClient,
		Breakers: resilience.NewManager(nil),
	}, nil
}

// Shutdown closes every resource Setup opened, bounded by ctx.
func (c *Context) Shutdown(ctx context.Context) {
	if err := c.Metrics.Shutdown(ctx); err != nil {
		c.Log.Error().Err(err).Msg("metrics server shutdown failed")
	}
	c.Bus.Close()
	c.Store.Close()
	if err := c.Redis.Close(); err != nil {
		c.Log.Error().Err(err).Msg("redis client close failed")
	}
}

// SignalContext returns a context cancelled on SIGINT/SIGTERM, the same
// signal set cmd/orchestrator/main.go traps.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func newLogger(agentName, level string) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("agent", agentName).Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
