package statemachine

import (
	"fmt"

	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
)

// fromTo is the (from_state, to_state) key an event is inferred from.
type fromTo struct {
	from, to string
}

// eventInferenceTable maps (resource kind, from, to) to the event name that
// would drive that transition. It is built from the same transition tables
// the engine validates against, so the inference and the table can never
// drift apart the way two independently hand-written copies could.
type eventInferenceTable map[types.ResourceKind]map[fromTo]string

func buildEventInferenceTable(tables map[types.ResourceKind][]types.StateTransition) eventInferenceTable {
	out := make(eventInferenceTable, len(tables))
	for kind, rows := range tables {
		m := make(map[fromTo]string, len(rows))
		for _, row := range rows {
			m[fromTo{row.FromState, row.ToState}] = row.Event
		}
		out[kind] = m
	}
	return out
}

// inferEvent infers the triggering event for a (current, target) state pair
// of the given kind. Unmapped pairs (and unknown kinds) fall back to
// `transition_{current}_{target}`, a name that never matches any
// transition-table row and therefore fails validation safely: the
// inference is a total function over all possible inputs.
func (t eventInferenceTable) inferEvent(kind types.ResourceKind, current, target string) string {
	if byPair, ok := t[kind]; ok {
		if event, ok := byPair[fromTo{current, target}]; ok {
			return event
		}
	}
	return fmt.Sprintf("transition_%s_%s", current, target)
}
