package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// State machine metrics
	TransitionsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_transitions_applied_total",
			Help: "Total number of state transitions committed, by resource kind",
		},
		[]string{"kind"},
	)

	TransitionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_transitions_rejected_total",
			Help: "Total number of state transitions rejected, by resource kind and error code",
		},
		[]string{"kind", "error_code"},
	)

	WriteThroughDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "piccolo_write_through_duration_seconds",
			Help:    "Time taken to persist and cache a state transition",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActionQueueDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "piccolo_action_queue_dropped_total",
			Help: "Total number of ActionCommands dropped because the action queue was full",
		},
	)

	CrashLoopBackOffTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_crash_loop_backoff_total",
			Help: "Total number of times a resource entered CrashLoopBackOff",
		},
		[]string{"kind"},
	)

	// Node Registry metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "piccolo_nodes_total",
			Help: "Total number of registered nodes by role and status",
		},
		[]string{"role", "status"},
	)

	StaleNodesSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "piccolo_stale_nodes_swept_total",
			Help: "Total number of nodes marked offline by the stale-node sweeper",
		},
	)

	// Action Controller metrics
	ActionTriggerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "piccolo_action_trigger_duration_seconds",
			Help:    "Time taken to dispatch a scenario trigger across its models",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scenario"},
	)

	SymlinkOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_symlink_operations_total",
			Help: "Total number of kube-unit symlink create/remove operations, by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Node Agent metrics
	HeartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_heartbeats_total",
			Help: "Total number of heartbeats sent by this node agent, by outcome",
		},
		[]string{"outcome"},
	)

	YAMLIntakeRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "piccolo_yaml_intake_rejected_total",
			Help: "Total number of YAML manifests rejected because the intake channel was full",
		},
	)

	ContainerInspectDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "piccolo_container_inspect_duration_seconds",
			Help:    "Time taken to inspect all containers on a node",
			Buckets: prometheus.DefBuckets,
		},
	)

	// State Manager resource-alert metrics
	ResourceAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_resource_alerts_total",
			Help: "Total number of CPU/memory threshold alerts, by metric and severity",
		},
		[]string{"metric", "severity"},
	)

	// Error bus metrics
	ErrorReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_error_reports_total",
			Help: "Total number of error reports submitted to the error bus, by component",
		},
		[]string{"component"},
	)
)

func init() {
	prometheus.MustRegister(
		TransitionsAppliedTotal,
		TransitionsRejectedTotal,
		WriteThroughDuration,
		ActionQueueDroppedTotal,
		CrashLoopBackOffTotal,
		NodesTotal,
		StaleNodesSweptTotal,
		ActionTriggerDuration,
		SymlinkOperationsTotal,
		HeartbeatsTotal,
		YAMLIntakeRejectedTotal,
		ContainerInspectDuration,
		ResourceAlertsTotal,
		ErrorReportsTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
