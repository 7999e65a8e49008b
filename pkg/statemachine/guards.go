package statemachine

import "github.com/eclipse-pullpiri/pullpiri/pkg/log"

// GuardTable evaluates named guard conditions against an inbound
// StateChange. Guard names are opaque strings from the transition tables
// (see transitions.go); implementations MUST NOT hard-code semantics for
// guard names they don't recognize — Evaluate's contract is that unknown
// names return true with a logged warning, never false.
type GuardTable interface {
	Evaluate(guard string, ctx GuardContext) bool
}

// GuardContext carries the inputs a guard predicate may need. It is
// intentionally narrow; richer policy engines can wrap it.
type GuardContext struct {
	ResourceName string
	CurrentState string
	TargetState  string
}

// defaultGuardValues are the fixed truth values for the guard names the
// transition tables reference as condition strings. Guards not listed here
// default to true via DefaultGuardTable.Evaluate.
var defaultGuardValues = map[string]bool{
	"all_models_normal":            true,
	"critical_models_normal":       true,
	"critical_models_failed":       false,
	"non_critical_model_issues":    true,
	"critical_model_issues":        false,
	"all_models_recovered":         true,
	"critical_models_affected":     false,
	"depends_on_recovery_level":    true,
	"depends_on_previous_state":    true,
	"depends_on_rollback_settings": true,
	"sufficient_resources":         true,
	"timeout_or_error":             false,
	"all_containers_started":       true,
	"one_time_task":                true,
	"unexpected_termination":       false,
	"consecutive_restart_failures": false,
	"node_communication_issues":    false,
	"restart_successful":           true,
	"retry_limit_reached":          false,
	"depends_on_actual_state":      true,
	"according_to_restart_policy":  true,
}

// DefaultGuardTable is the pluggable predicate table installed on a new
// Engine by default.
type DefaultGuardTable struct{}

// Evaluate looks up guard in the fixed policy table. An unrecognized guard
// name evaluates to true with a logged warning, per the engine's contract.
func (DefaultGuardTable) Evaluate(guard string, _ GuardContext) bool {
	if v, ok := defaultGuardValues[guard]; ok {
		return v
	}
	log.WithComponent("statemachine").Warn().Str("guard", guard).Msg("unknown guard, defaulting to true")
	return true
}
