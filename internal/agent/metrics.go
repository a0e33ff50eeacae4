package agent

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus series every agent exposes, grounded on the
// teacher's internal/agents/base.go AgentMetrics (StepsTotal/StepDuration/
// AgentStatus kept and renamed; the MCP call counters have no replacement
// here since this framework has no MCP surface) plus new series for the
// topic-subscription and periodic-job model this framework adds.
type Metrics struct {
	status          prometheus.Gauge
	uptime          prometheus.Gauge
	messagesHandled *prometheus.CounterVec
	handlerErrors   *prometheus.CounterVec
	jobDuration     prometheus.Histogram
	jobErrors       prometheus.Counter
	jobSkipped      prometheus.Counter
}

func newMetrics(agentName string) *Metrics {
	name := sanitizeMetricName(agentName)

	return &Metrics{
		status: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "agent_status",
			Help: "Agent health status (1=healthy, 0=unhealthy)",
			ConstLabels: prometheus.Labels{
				"agent": name,
			},
		}),
		uptime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "agent_uptime_seconds",
			Help: "Seconds since the agent process started",
			ConstLabels: prometheus.Labels{
				"agent": name,
			},
		}),
		messagesHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_messages_handled_total",
			Help: "Total bus messages successfully handled, by topic",
			ConstLabels: prometheus.Labels{
				"agent": name,
			},
		}, []string{"topic"}),
		handlerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_handler_errors_total",
			Help: "Total bus message handler errors, by topic",
			ConstLabels: prometheus.Labels{
				"agent": name,
			},
		}, []string{"topic"}),
		jobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "agent_periodic_job_duration_seconds",
			Help: "Duration of periodic job executions",
			ConstLabels: prometheus.Labels{
				"agent": name,
			},
			Buckets: prometheus.DefBuckets,
		}),
		jobErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agent_periodic_job_errors_total",
			Help: "Total periodic job failures",
			ConstLabels: prometheus.Labels{
				"agent": name,
			},
		}),
		jobSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agent_periodic_job_skipped_total",
			Help: "Total periodic job ticks skipped because the previous run was still in flight",
			ConstLabels: prometheus.Labels{
				"agent": name,
			},
		}),
	}
}

func sanitizeMetricName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
