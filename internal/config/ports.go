// Package config provides configuration management for the trading pipeline.
// This file centralizes all port constants to avoid duplication and ensure
// consistency across agent processes.
package config

// ============================================================================
// CENTRALIZED PORT CONFIGURATION
// ============================================================================
//
// Port Allocation Strategy:
//   8200-8299: Infrastructure services (Vault, etc.)
//   9100-9199: Prometheus metrics endpoints, one per agent
// ============================================================================

// Infrastructure Service Ports
const (
	// VaultPort is the default port for HashiCorp Vault.
	VaultPort = 8200

	// PostgresPort is the default port for PostgreSQL.
	PostgresPort = 5432

	// RedisPort is the default port for Redis.
	RedisPort = 6379

	// NATSPort is the default port for NATS messaging.
	NATSPort = 4222
)

// Prometheus Metrics Ports for the pipeline agents.
// Each agent gets a unique port for metrics scraping and /healthz.
const (
	// MetricsPort is the default metrics port used when an agent-specific
	// override is not configured.
	MetricsPort = 9100

	MetricsPortDataCollection    = 9101
	MetricsPortTechnicalAnalysis = 9102
	MetricsPortStrategy          = 9103
	MetricsPortRiskManager       = 9104
	MetricsPortExecution         = 9105
)

// Monitoring Service Ports
const (
	// PrometheusPort is the default port for Prometheus.
	PrometheusPort = 9090

	// GrafanaPort is the default port for Grafana.
	GrafanaPort = 3000

	// NATSExporterPort is the port for the NATS Prometheus exporter.
	NATSExporterPort = 7777
)

// AgentMetricsPorts maps agent names to their metrics ports, used for
// Prometheus scrape configuration and health checks.
var AgentMetricsPorts = map[string]int{
	"data-collection":    MetricsPortDataCollection,
	"technical-analysis": MetricsPortTechnicalAnalysis,
	"strategy":           MetricsPortStrategy,
	"risk-manager":       MetricsPortRiskManager,
	"execution":          MetricsPortExecution,
}

// GetAgentMetricsPort returns the metrics port for a given agent name.
// Returns 0 if the agent is not found.
func GetAgentMetricsPort(agentName string) int {
	if port, ok := AgentMetricsPorts[agentName]; ok {
		return port
	}
	return 0
}
