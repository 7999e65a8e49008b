package statemachine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"gopkg.in/yaml.v3"
)

// resourceKey builds the `{Kind}::{name}` cache/log key for a resource.
func resourceKey(kind types.ResourceKind, name string) string {
	return fmt.Sprintf("%s::%s", kind, name)
}

// kvKey builds the full `state/{Kind}::{name}` Durable KV port key.
func kvKey(kind types.ResourceKind, name string) string {
	return "state/" + resourceKey(kind, name)
}

// loadResourceState reads and YAML-decodes a ResourceState record from the
// KV port, or returns (nil, nil) if absent.
func loadResourceState(ctx context.Context, store kv.Store, kind types.ResourceKind, name string) (*types.ResourceState, error) {
	raw, err := store.Get(ctx, kvKey(kind, name))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state types.ResourceState
	if err := yaml.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// currentStateOf returns the current_state string to validate a transition
// against given a possibly-nil prior record: the record's value if one was
// loaded, otherwise the caller-supplied fallback (the StateChange's own
// current_state), exactly as the original source falls back when a
// resource has no prior record.
func currentStateOf(prior *types.ResourceState, fallback string) string {
	if prior == nil {
		return fallback
	}
	return prior.CurrentState
}

// buildUpdatedState constructs the next ResourceState record for a
// committed transition: bump transition_count, stamp
// last_transition_unix_timestamp, set desired/current state. A brand-new
// resource starts with transition_count=1 and a fresh HealthStatus.
func buildUpdatedState(existing *types.ResourceState, change types.StateChange, kind types.ResourceKind, toState string) types.ResourceState {
	now := time.Now().Unix()
	desired := change.TargetState

	if existing != nil {
		updated := *existing
		updated.CurrentState = toState
		updated.DesiredState = &desired
		updated.LastTransitionUnixTimestamp = now
		updated.TransitionCount++
		return updated
	}

	return types.ResourceState{
		ResourceType:                kind,
		ResourceName:                change.ResourceName,
		CurrentState:                toState,
		DesiredState:                &desired,
		LastTransitionUnixTimestamp: now,
		TransitionCount:             1,
		Metadata:                    map[string]string{},
		HealthStatus:                freshHealthStatus(),
	}
}

// persistResourceState writes a ResourceState to the KV port as YAML under
// its stable key prefix. This MUST be called, and MUST succeed, before the
// in-memory cache is updated (durability first, per §4.1's write-through
// protocol).
func persistResourceState(ctx context.Context, store kv.Store, kind types.ResourceKind, state types.ResourceState) error {
	raw, err := yaml.Marshal(state)
	if err != nil {
		return err
	}
	return store.Put(ctx, kvKey(kind, state.ResourceName), raw)
}
