package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds configuration shared by every agent process plus the blocks
// specific to each of the five agents.
type Config struct {
	App               AppConfig               `mapstructure:"app"`
	Database          DatabaseConfig          `mapstructure:"database"`
	Redis             RedisConfig             `mapstructure:"redis"`
	NATS              NATSConfig              `mapstructure:"nats"`
	Vault             VaultSection            `mapstructure:"vault"`
	DataCollection    DataCollectionConfig    `mapstructure:"data_collection"`
	TechnicalAnalysis TechnicalAnalysisConfig `mapstructure:"technical_analysis"`
	Strategy          StrategyConfig          `mapstructure:"strategy"`
	Risk              RiskConfig              `mapstructure:"risk"`
	Execution         ExecutionConfig         `mapstructure:"execution"`
	Exchanges         map[string]ExchangeConfig `mapstructure:"exchanges"`
	Monitoring        MonitoringConfig        `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings shared by all agents.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisConfig contains the dedup-cache connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig contains message-bus connection settings.
type NATSConfig struct {
	URL             string `mapstructure:"url"`
	EnableJetStream bool   `mapstructure:"enable_jetstream"`
	StreamPrefix    string `mapstructure:"stream_prefix"`
}

// VaultSection toggles the startup secrets loader.
type VaultSection struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	AuthMethod string `mapstructure:"auth_method"`
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"`
}

// DataCollectionConfig configures the DataCollection agent.
type DataCollectionConfig struct {
	Symbols             []string      `mapstructure:"symbols"`
	Timeframe           string        `mapstructure:"timeframe"`
	IntervalSeconds      int           `mapstructure:"interval_seconds"`
	Mode                 string        `mapstructure:"mode"` // "streaming" or "polling"
	WSSilenceThreshold   time.Duration `mapstructure:"ws_silence_threshold"`
}

// TechnicalAnalysisConfig configures the TechnicalAnalysis agent.
type TechnicalAnalysisConfig struct {
	MinWindow int `mapstructure:"min_window"`
}

// StrategyConfig configures the Strategy/Signal-Fusion agent.
type StrategyConfig struct {
	FusionStrategy    string        `mapstructure:"fusion_strategy"` // bayesian|consensus|time_decay|hybrid
	MinSignals        int           `mapstructure:"min_signals"`
	SignalTimeout     time.Duration `mapstructure:"signal_timeout"`
	BufferMax         int           `mapstructure:"buffer_max"`
	MinConfidence     float64       `mapstructure:"min_confidence"`
	MinAgreement      float64       `mapstructure:"min_agreement"`
	DecisionInterval  time.Duration `mapstructure:"decision_interval"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	HybridWeights     HybridWeights `mapstructure:"hybrid_weights"`
	AdaptiveWeighting bool          `mapstructure:"adaptive_weighting"`
}

// HybridWeights are the fixed per-strategy weights for Hybrid fusion.
type HybridWeights struct {
	Bayesian   float64 `mapstructure:"bayesian"`
	Consensus  float64 `mapstructure:"consensus"`
	TimeDecay  float64 `mapstructure:"time_decay"`
}

// RiskConfig configures RiskManager.
type RiskConfig struct {
	SizingMethod       string  `mapstructure:"sizing_method"` // kelly|fixed_fractional|volatility|hybrid
	StopMethod         string  `mapstructure:"stop_method"`
	TargetRR           float64 `mapstructure:"target_rr"`
	KellyMin           float64 `mapstructure:"kelly_min"`
	KellyMax           float64 `mapstructure:"kelly_max"`
	FixedRiskPct       float64 `mapstructure:"fixed_risk_pct"`
	ATRMultiplier      float64 `mapstructure:"atr_k"`
	RR                 float64 `mapstructure:"rr"`
	MinConfidence      float64 `mapstructure:"min_confidence"`
	MinRR              float64 `mapstructure:"min_rr"`
	MaxRiskPerTrade    float64 `mapstructure:"max_risk_per_trade"`
	MaxPortfolioRisk   float64 `mapstructure:"max_portfolio_risk"`
	TrailingEnabled    bool    `mapstructure:"trailing_enabled"`
	TrailingActivation float64 `mapstructure:"trailing_activation_pct"`
	ClustersFile       string  `mapstructure:"clusters_file"`
	StandardTierPct    float64 `mapstructure:"standard_tier_pct"`
	InitialBalance     float64 `mapstructure:"initial_balance"`
}

// ExecutionConfig configures the Execution agent.
type ExecutionConfig struct {
	MonitoringInterval time.Duration `mapstructure:"monitoring_interval"`
	MaxSlippagePct     float64       `mapstructure:"max_slippage_pct"`
	OrderPlaceTimeout  time.Duration `mapstructure:"order_place_timeout"`
	OrderFillTimeout   time.Duration `mapstructure:"order_fill_timeout"`
	DefaultFeeRate     float64       `mapstructure:"default_fee_rate"`
}

// ExchangeConfig contains exchange-specific settings.
type ExchangeConfig struct {
	APIKey      string    `mapstructure:"api_key"`
	SecretKey   string    `mapstructure:"secret_key"`
	Testnet     bool      `mapstructure:"testnet"`
	RateLimitMS int       `mapstructure:"rate_limit_ms"`
	Fees        FeeConfig `mapstructure:"fees"`
}

// FeeConfig contains the exchange maker/taker fee rates. No fill-quality
// score is computed from them.
type FeeConfig struct {
	Maker float64 `mapstructure:"maker"`
	Taker float64 `mapstructure:"taker"`
}

// MonitoringConfig contains Prometheus metrics settings.
type MonitoringConfig struct {
	MetricsPort   int  `mapstructure:"metrics_port"`
	EnableMetrics bool `mapstructure:"enable_metrics"`
}

// Load reads configuration from configPath (or ./configs/config.yaml by
// default), overlays environment variables prefixed TRADINGPIPELINE_, and
// validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("TRADINGPIPELINE")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tradingpipeline")
	v.SetDefault("app.version", Version)
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "tradingpipeline")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enable_jetstream", true)
	v.SetDefault("nats.stream_prefix", "pipeline")

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "http://localhost:8200")
	v.SetDefault("vault.auth_method", "token")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "tradingpipeline/production")

	v.SetDefault("data_collection.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("data_collection.timeframe", "1m")
	v.SetDefault("data_collection.interval_seconds", 30)
	v.SetDefault("data_collection.mode", "polling")
	v.SetDefault("data_collection.ws_silence_threshold", 90*time.Second)

	v.SetDefault("technical_analysis.min_window", 200)

	v.SetDefault("strategy.fusion_strategy", "hybrid")
	v.SetDefault("strategy.min_signals", 2)
	v.SetDefault("strategy.signal_timeout", 300*time.Second)
	v.SetDefault("strategy.buffer_max", 50)
	v.SetDefault("strategy.min_confidence", 0.6)
	v.SetDefault("strategy.min_agreement", 0.6)
	v.SetDefault("strategy.decision_interval", 15*time.Second)
	v.SetDefault("strategy.cooldown", 15*time.Second)
	v.SetDefault("strategy.hybrid_weights.bayesian", 0.4)
	v.SetDefault("strategy.hybrid_weights.consensus", 0.3)
	v.SetDefault("strategy.hybrid_weights.time_decay", 0.3)
	v.SetDefault("strategy.adaptive_weighting", false)

	v.SetDefault("risk.sizing_method", "hybrid")
	v.SetDefault("risk.stop_method", "atr")
	v.SetDefault("risk.target_rr", 2.0)
	v.SetDefault("risk.kelly_min", 0.01)
	v.SetDefault("risk.kelly_max", 0.25)
	v.SetDefault("risk.fixed_risk_pct", 0.02)
	v.SetDefault("risk.atr_k", 2.0)
	v.SetDefault("risk.rr", 2.0)
	v.SetDefault("risk.min_confidence", 0.6)
	v.SetDefault("risk.min_rr", 1.5)
	v.SetDefault("risk.max_risk_per_trade", 0.01)
	v.SetDefault("risk.max_portfolio_risk", 0.2)
	v.SetDefault("risk.trailing_enabled", false)
	v.SetDefault("risk.trailing_activation_pct", 0.01)
	v.SetDefault("risk.clusters_file", "configs/clusters.yaml")
	v.SetDefault("risk.standard_tier_pct", 15.0)
	v.SetDefault("risk.initial_balance", 10000.0)

	v.SetDefault("execution.monitoring_interval", 10*time.Second)
	v.SetDefault("execution.max_slippage_pct", 0.3)
	v.SetDefault("execution.order_place_timeout", 5*time.Second)
	v.SetDefault("execution.order_fill_timeout", 30*time.Second)
	v.SetDefault("execution.default_fee_rate", 0.001)

	v.SetDefault("monitoring.metrics_port", MetricsPort)
	v.SetDefault("monitoring.enable_metrics", true)

	v.SetDefault("exchanges.binance.fees.maker", 0.001)
	v.SetDefault("exchanges.binance.fees.taker", 0.001)
}

// GetDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// GetRedisAddr returns the Redis address.
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
