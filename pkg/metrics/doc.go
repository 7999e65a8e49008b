/*
Package metrics provides Prometheus metrics collection and exposition for
the cluster's state & action reconciliation subsystem.

Metrics are defined as package-level prometheus collectors, registered once
in init, and exercised directly from the components that own the events
they describe: the state machine engine records transition outcomes, the
Node Registry records sweeper activity, the Action Controller records
dispatch latency and symlink outcomes, the node agent records heartbeat and
intake outcomes, and the state manager records resource-threshold alerts.

# Exposition

Handler returns the standard Prometheus scrape handler:

	mux.Handle("/metrics", metrics.Handler())

# Timer helper

Timer measures elapsed time against a histogram without each call site
re-deriving time.Since arithmetic:

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.WriteThroughDuration)

# Metric reference

piccolo_transitions_applied_total{kind}:
  - Type: Counter
  - Description: state transitions committed, per resource kind

piccolo_transitions_rejected_total{kind, error_code}:
  - Type: Counter
  - Description: state transitions rejected, per resource kind and error code

piccolo_write_through_duration_seconds:
  - Type: Histogram
  - Description: time to persist + cache a single transition

piccolo_action_queue_dropped_total:
  - Type: Counter
  - Description: ActionCommands dropped because the action queue was full

piccolo_crash_loop_backoff_total{kind}:
  - Type: Counter
  - Description: times a resource entered CrashLoopBackOff

piccolo_nodes_total{role, status}:
  - Type: Gauge
  - Description: registered nodes, per role and status

piccolo_stale_nodes_swept_total:
  - Type: Counter
  - Description: nodes marked offline by the stale-node sweeper

piccolo_action_trigger_duration_seconds{scenario}:
  - Type: Histogram
  - Description: time to dispatch a scenario trigger across its models

piccolo_symlink_operations_total{operation, outcome}:
  - Type: Counter
  - Description: kube-unit symlink create/remove calls, per outcome

piccolo_heartbeats_total{outcome}:
  - Type: Counter
  - Description: node agent heartbeats sent, per outcome

piccolo_yaml_intake_rejected_total:
  - Type: Counter
  - Description: YAML manifests rejected because the intake channel was full

piccolo_container_inspect_duration_seconds:
  - Type: Histogram
  - Description: time to inspect every container on a node

piccolo_resource_alerts_total{metric, severity}:
  - Type: Counter
  - Description: CPU/memory threshold alerts, per metric and severity

piccolo_error_reports_total{component}:
  - Type: Counter
  - Description: reports submitted to the error bus, per component
*/
package metrics
