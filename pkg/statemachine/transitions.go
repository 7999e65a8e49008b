package statemachine

import "github.com/eclipse-pullpiri/pullpiri/pkg/types"

// Scenario states.
const (
	ScenarioIdle    = "Idle"
	ScenarioWaiting = "Waiting"
	ScenarioAllowed = "Allowed"
	ScenarioPlaying = "Playing"
	ScenarioDenied  = "Denied"
)

// Package states.
const (
	PackageUnspecified  = "Unspecified"
	PackageInitializing = "Initializing"
	PackageRunning      = "Running"
	PackageDegraded     = "Degraded"
	PackageError        = "Error"
	PackagePaused       = "Paused"
	PackageUpdating     = "Updating"
)

// Model states.
const (
	ModelUnspecified      = "Unspecified"
	ModelPending          = "Pending"
	ModelContainerCreating = "ContainerCreating"
	ModelRunning          = "Running"
	ModelSucceeded        = "Succeeded"
	ModelFailed           = "Failed"
	ModelCrashLoopBackOff = "CrashLoopBackOff"
	ModelUnknown          = "Unknown"
)

// scenarioTransitions is the process-wide-immutable transition table for
// Scenario resources.
func scenarioTransitions() []types.StateTransition {
	return []types.StateTransition{
		{FromState: ScenarioIdle, Event: "scenario_activation", ToState: ScenarioWaiting, Action: "start_condition_evaluation"},
		{FromState: ScenarioWaiting, Event: "condition_met", ToState: ScenarioAllowed, Action: "start_policy_verification"},
		{FromState: ScenarioAllowed, Event: "policy_verification_success", ToState: ScenarioPlaying, Action: "execute_action_on_target_package"},
		{FromState: ScenarioAllowed, Event: "policy_verification_failure", ToState: ScenarioDenied, Action: "log_denial_generate_alert"},
	}
}

// packageTransitions is the process-wide-immutable transition table for
// Package resources.
func packageTransitions() []types.StateTransition {
	return []types.StateTransition{
		{FromState: PackageUnspecified, Event: "launch_request", ToState: PackageInitializing, Action: "start_model_creation_allocate_resources"},
		{FromState: PackageInitializing, Event: "initialization_complete", ToState: PackageRunning, Condition: "all_models_normal", Action: "update_state_announce_availability"},
		{FromState: PackageInitializing, Event: "partial_initialization_failure", ToState: PackageDegraded, Condition: "critical_models_normal", Action: "log_warning_activate_partial_functionality"},
		{FromState: PackageInitializing, Event: "critical_initialization_failure", ToState: PackageError, Condition: "critical_models_failed", Action: "log_error_attempt_recovery"},
		{FromState: PackageRunning, Event: "model_issue_detected", ToState: PackageDegraded, Condition: "non_critical_model_issues", Action: "log_warning_maintain_partial_functionality"},
		{FromState: PackageRunning, Event: "critical_issue_detected", ToState: PackageError, Condition: "critical_model_issues", Action: "log_error_attempt_recovery"},
		{FromState: PackageRunning, Event: "pause_request", ToState: PackagePaused, Action: "pause_models_preserve_state"},
		{FromState: PackageDegraded, Event: "model_recovery", ToState: PackageRunning, Condition: "all_models_recovered", Action: "update_state_restore_full_functionality"},
		{FromState: PackageDegraded, Event: "additional_model_issues", ToState: PackageError, Condition: "critical_models_affected", Action: "log_error_attempt_recovery"},
		{FromState: PackageDegraded, Event: "pause_request", ToState: PackagePaused, Action: "pause_models_preserve_state"},
		{FromState: PackageError, Event: "recovery_successful", ToState: PackageRunning, Condition: "depends_on_recovery_level", Action: "update_state_announce_functionality_restoration"},
		{FromState: PackagePaused, Event: "resume_request", ToState: PackageRunning, Condition: "depends_on_previous_state", Action: "resume_models_restore_state"},
		{FromState: PackageRunning, Event: "update_request", ToState: PackageUpdating, Action: "start_update_process"},
		{FromState: PackageUpdating, Event: "update_successful", ToState: PackageRunning, Action: "activate_new_version_update_state"},
		{FromState: PackageUpdating, Event: "update_failed", ToState: PackageError, Condition: "depends_on_rollback_settings", Action: "rollback_or_error_handling"},
	}
}

// modelTransitions is the process-wide-immutable transition table for
// Model resources.
func modelTransitions() []types.StateTransition {
	return []types.StateTransition{
		{FromState: ModelUnspecified, Event: "creation_request", ToState: ModelPending, Action: "start_node_selection_and_allocation"},
		{FromState: ModelPending, Event: "node_allocation_complete", ToState: ModelContainerCreating, Condition: "sufficient_resources", Action: "pull_container_images_mount_volumes"},
		{FromState: ModelPending, Event: "node_allocation_failed", ToState: ModelFailed, Condition: "timeout_or_error", Action: "log_error_retry_or_reschedule"},
		{FromState: ModelContainerCreating, Event: "container_creation_complete", ToState: ModelRunning, Condition: "all_containers_started", Action: "update_state_start_readiness_checks"},
		{FromState: ModelContainerCreating, Event: "container_creation_failed", ToState: ModelFailed, Action: "log_error_retry_or_reschedule"},
		{FromState: ModelRunning, Event: "temporary_task_complete", ToState: ModelSucceeded, Condition: "one_time_task", Action: "log_completion_clean_up_resources"},
		{FromState: ModelRunning, Event: "container_termination", ToState: ModelFailed, Condition: "unexpected_termination", Action: "log_error_evaluate_automatic_restart"},
		{FromState: ModelRunning, Event: "repeated_crash_detection", ToState: ModelCrashLoopBackOff, Condition: "consecutive_restart_failures", Action: "set_backoff_timer_collect_logs"},
		{FromState: ModelRunning, Event: "monitoring_failure", ToState: ModelUnknown, Condition: "node_communication_issues", Action: "attempt_diagnostics_restore_communication"},
		{FromState: ModelCrashLoopBackOff, Event: "backoff_time_elapsed", ToState: ModelRunning, Condition: "restart_successful", Action: "resume_monitoring_reset_counter"},
		{FromState: ModelCrashLoopBackOff, Event: "maximum_retries_exceeded", ToState: ModelFailed, Condition: "retry_limit_reached", Action: "log_error_notify_for_manual_intervention"},
		{FromState: ModelUnknown, Event: "state_check_recovered", ToState: ModelRunning, Condition: "depends_on_actual_state", Action: "synchronize_state_recover_if_needed"},
		{FromState: ModelFailed, Event: "manual_automatic_recovery", ToState: ModelPending, Condition: "according_to_restart_policy", Action: "start_model_recreation"},
	}
}

// defaultTransitionTables builds the complete, process-wide-immutable
// transition-table set indexed by resource kind.
func defaultTransitionTables() map[types.ResourceKind][]types.StateTransition {
	return map[types.ResourceKind][]types.StateTransition{
		types.KindScenario: scenarioTransitions(),
		types.KindPackage:  packageTransitions(),
		types.KindModel:    modelTransitions(),
	}
}
