package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Credentials is the process-wide set of secret values every agent needs at
// startup. Never log this struct or any of its fields.
type Credentials struct {
	DatabaseURL     string
	RedisPassword   string
	NATSURL         string
	ExchangeAPIKey  string
	ExchangeSecret  string
}

// Load resolves Credentials from Vault when cfg.Enabled, falling back to
// environment variables for any field Vault did not supply — the same
// fallback chain the relational store uses for its own connection string.
func Load(ctx context.Context, cfg Config) (*Credentials, error) {
	creds := &Credentials{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		NATSURL:        envOrDefault("NATS_URL", "nats://localhost:4222"),
		ExchangeAPIKey: os.Getenv("EXCHANGE_API_KEY"),
		ExchangeSecret: os.Getenv("EXCHANGE_API_SECRET"),
	}

	if !cfg.Enabled {
		log.Info().Msg("vault integration disabled, using environment variables for secrets")
		return creds, nil
	}

	client, err := NewClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("could not initialize vault client, falling back to environment variables")
		return creds, nil
	}

	if db, err := client.Get(ctx, "database"); err == nil {
		if v, ok := db["url"].(string); ok && v != "" {
			creds.DatabaseURL = v
		}
	} else {
		log.Debug().Err(err).Msg("could not load database secret from vault, keeping env fallback")
	}

	if redis, err := client.Get(ctx, "redis"); err == nil {
		if v, ok := redis["password"].(string); ok && v != "" {
			creds.RedisPassword = v
		}
	} else {
		log.Debug().Err(err).Msg("could not load redis secret from vault, keeping env fallback")
	}

	if nats, err := client.Get(ctx, "nats"); err == nil {
		if v, ok := nats["url"].(string); ok && v != "" {
			creds.NATSURL = v
		}
	} else {
		log.Debug().Err(err).Msg("could not load nats secret from vault, keeping env fallback")
	}

	if exch, err := client.Get(ctx, "exchanges/binance"); err == nil {
		if v, ok := exch["api_key"].(string); ok && v != "" {
			creds.ExchangeAPIKey = v
		}
		if v, ok := exch["secret_key"].(string); ok && v != "" {
			creds.ExchangeSecret = v
		}
	} else {
		log.Debug().Err(err).Msg("could not load exchange secret from vault, keeping env fallback")
	}

	if creds.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set and vault credentials not available")
	}

	log.Info().Msg("credentials resolved")
	return creds, nil
}
