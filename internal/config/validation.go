package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Validate performs comprehensive configuration validation.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateApp()...)
	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateRedis()...)
	errs = append(errs, c.validateNATS()...)
	errs = append(errs, c.validateDataCollection()...)
	errs = append(errs, c.validateStrategy()...)
	errs = append(errs, c.validateRisk()...)
	errs = append(errs, c.validateExecution()...)
	errs = append(errs, c.validateExchanges()...)
	errs = append(errs, c.validateEnvironmentRequirements()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errs ValidationErrors

	if c.App.Name == "" {
		errs = append(errs, ValidationError{Field: "app.name", Message: "application name is required"})
	}

	if c.App.Environment == "" {
		errs = append(errs, ValidationError{Field: "app.environment", Message: "environment is required (development, staging, or production)"})
	} else {
		validEnvs := []string{"development", "staging", "production"}
		valid := false
		for _, env := range validEnvs {
			if c.App.Environment == env {
				valid = true
				break
			}
		}
		if !valid {
			errs = append(errs, ValidationError{Field: "app.environment", Message: fmt.Sprintf("invalid environment %q, must be one of %v", c.App.Environment, validEnvs)})
		}
	}

	if c.App.LogLevel == "" {
		errs = append(errs, ValidationError{Field: "app.log_level", Message: "log level is required (debug, info, warn, error)"})
	}

	return errs
}

func (c *Config) validateDatabase() ValidationErrors {
	var errs ValidationErrors

	if c.Database.Host == "" {
		errs = append(errs, ValidationError{Field: "database.host", Message: "database host is required"})
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		errs = append(errs, ValidationError{Field: "database.port", Message: fmt.Sprintf("invalid port %d, must be between 1-65535", c.Database.Port)})
	}
	if c.Database.User == "" {
		errs = append(errs, ValidationError{Field: "database.user", Message: "database user is required"})
	}
	if c.Database.Database == "" {
		errs = append(errs, ValidationError{Field: "database.database", Message: "database name is required"})
	}
	if c.Database.Password == "" && c.App.Environment != "development" {
		errs = append(errs, ValidationError{Field: "database.password", Message: "database password is required in non-development environments"})
	}
	if c.Database.PoolSize < 1 {
		errs = append(errs, ValidationError{Field: "database.pool_size", Message: "database pool size must be at least 1"})
	}

	return errs
}

func (c *Config) validateRedis() ValidationErrors {
	var errs ValidationErrors

	if c.Redis.Host == "" {
		errs = append(errs, ValidationError{Field: "redis.host", Message: "redis host is required"})
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, ValidationError{Field: "redis.port", Message: fmt.Sprintf("invalid port %d, must be between 1-65535", c.Redis.Port)})
	}

	return errs
}

func (c *Config) validateNATS() ValidationErrors {
	var errs ValidationErrors

	if c.NATS.URL == "" {
		errs = append(errs, ValidationError{Field: "nats.url", Message: "nats url is required"})
	} else if !strings.HasPrefix(c.NATS.URL, "nats://") {
		errs = append(errs, ValidationError{Field: "nats.url", Message: "nats url must start with 'nats://'"})
	}

	return errs
}

func (c *Config) validateDataCollection() ValidationErrors {
	var errs ValidationErrors

	if len(c.DataCollection.Symbols) == 0 {
		errs = append(errs, ValidationError{Field: "data_collection.symbols", Message: "at least one symbol is required"})
	}
	if c.DataCollection.Mode != "streaming" && c.DataCollection.Mode != "polling" {
		errs = append(errs, ValidationError{Field: "data_collection.mode", Message: fmt.Sprintf("invalid mode %q, must be 'streaming' or 'polling'", c.DataCollection.Mode)})
	}
	if c.DataCollection.IntervalSeconds < 1 {
		errs = append(errs, ValidationError{Field: "data_collection.interval_seconds", Message: "interval_seconds must be at least 1"})
	}

	return errs
}

func (c *Config) validateStrategy() ValidationErrors {
	var errs ValidationErrors

	validStrategies := []string{"bayesian", "consensus", "time_decay", "hybrid"}
	valid := false
	for _, s := range validStrategies {
		if c.Strategy.FusionStrategy == s {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, ValidationError{Field: "strategy.fusion_strategy", Message: fmt.Sprintf("invalid fusion_strategy %q, must be one of %v", c.Strategy.FusionStrategy, validStrategies)})
	}
	if c.Strategy.MinSignals < 1 {
		errs = append(errs, ValidationError{Field: "strategy.min_signals", Message: "min_signals must be at least 1"})
	}
	if c.Strategy.MinConfidence < 0 || c.Strategy.MinConfidence > 1 {
		errs = append(errs, ValidationError{Field: "strategy.min_confidence", Message: "min_confidence must be between 0-1"})
	}

	return errs
}

func (c *Config) validateRisk() ValidationErrors {
	var errs ValidationErrors

	validSizing := []string{"kelly", "fixed_fractional", "volatility", "hybrid"}
	valid := false
	for _, s := range validSizing {
		if c.Risk.SizingMethod == s {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, ValidationError{Field: "risk.sizing_method", Message: fmt.Sprintf("invalid sizing_method %q, must be one of %v", c.Risk.SizingMethod, validSizing)})
	}

	if c.Risk.MinConfidence < 0 || c.Risk.MinConfidence > 1 {
		errs = append(errs, ValidationError{Field: "risk.min_confidence", Message: "min_confidence must be between 0-1"})
	}
	if c.Risk.MinRR <= 0 {
		errs = append(errs, ValidationError{Field: "risk.min_rr", Message: "min_rr must be greater than 0"})
	}
	if c.Risk.MaxRiskPerTrade <= 0 || c.Risk.MaxRiskPerTrade > 1 {
		errs = append(errs, ValidationError{Field: "risk.max_risk_per_trade", Message: "max_risk_per_trade must be between 0-1"})
	}
	if c.Risk.MaxPortfolioRisk <= 0 || c.Risk.MaxPortfolioRisk > 1 {
		errs = append(errs, ValidationError{Field: "risk.max_portfolio_risk", Message: "max_portfolio_risk must be between 0-1"})
	}
	if c.Risk.KellyMin < 0 || c.Risk.KellyMax > 1 || c.Risk.KellyMin > c.Risk.KellyMax {
		errs = append(errs, ValidationError{Field: "risk.kelly_min/kelly_max", Message: "kelly bounds must satisfy 0 <= kelly_min <= kelly_max <= 1"})
	}

	return errs
}

func (c *Config) validateExecution() ValidationErrors {
	var errs ValidationErrors

	if c.Execution.MonitoringInterval <= 0 {
		errs = append(errs, ValidationError{Field: "execution.monitoring_interval", Message: "monitoring_interval must be greater than 0"})
	}
	if c.Execution.MaxSlippagePct < 0 {
		errs = append(errs, ValidationError{Field: "execution.max_slippage_pct", Message: "max_slippage_pct must be non-negative"})
	}

	return errs
}

func (c *Config) validateExchanges() ValidationErrors {
	var errs ValidationErrors

	if len(c.Exchanges) == 0 {
		errs = append(errs, ValidationError{Field: "exchanges", Message: "at least one exchange must be configured"})
	}

	for name, exch := range c.Exchanges {
		if exch.RateLimitMS < 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("exchanges.%s.rate_limit_ms", name), Message: "rate limit must be non-negative"})
		}
	}

	return errs
}

func (c *Config) validateEnvironmentRequirements() ValidationErrors {
	var errs ValidationErrors

	if c.App.Environment == "production" {
		errs = append(errs, ValidateProductionSecrets(c)...)

		for name, exch := range c.Exchanges {
			if exch.Testnet {
				errs = append(errs, ValidationError{Field: fmt.Sprintf("exchanges.%s.testnet", name), Message: "testnet mode must be disabled in production"})
			}
		}

		if c.Database.SSLMode == "disable" {
			errs = append(errs, ValidationError{Field: "database.ssl_mode", Message: "ssl must be enabled for database in production"})
		}

		if os.Getenv("DATABASE_URL") == "" && c.Database.Host == "" {
			errs = append(errs, ValidationError{Field: "env.DATABASE_URL", Message: "DATABASE_URL or database.host is required in production"})
		}
	}

	return errs
}

// ValidateAndLoad loads and validates configuration. configPath may be empty
// to use the default config locations.
func ValidateAndLoad(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}
