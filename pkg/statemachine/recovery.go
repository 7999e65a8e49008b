package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"gopkg.in/yaml.v3"
)

const stateKeyPrefix = "state/"

// LoadStartupState enumerates every persisted ResourceState under the
// `state/` prefix, validates each record, and warms the in-memory cache and
// backoff timers from the survivors. A record fails validation (and is
// deleted from the KV port rather than kept) when its resource_name is
// empty, its current_state is not a legal state name for its resource
// kind, or its last_transition_unix_timestamp is implausibly far in the
// future (more than an hour ahead of now — guards against clock-skew
// corruption rather than any real transition).
func (e *Engine) LoadStartupState(ctx context.Context) error {
	logger := log.WithComponent("statemachine")

	entries, err := e.store.List(ctx, stateKeyPrefix)
	if err != nil {
		return fmt.Errorf("list persisted state: %w", err)
	}

	loaded, dropped := 0, 0
	for key, raw := range entries {
		var state types.ResourceState
		if err := yaml.Unmarshal(raw, &state); err != nil {
			logger.Warn().Str("key", key).Err(err).Msg("dropping unparseable state record")
			e.deleteInvalid(ctx, key)
			dropped++
			continue
		}

		if err := e.validateLoadedState(state); err != nil {
			logger.Warn().Str("key", key).Err(err).Msg("dropping invalid state record")
			e.deleteInvalid(ctx, key)
			dropped++
			continue
		}

		cacheKey := resourceKey(state.ResourceType, state.ResourceName)
		s := state
		e.mu.Lock()
		e.cache[cacheKey] = &s
		e.mu.Unlock()
		e.backoff.restore(cacheKey, &s)
		loaded++
	}

	logger.Info().Int("loaded", loaded).Int("dropped", dropped).Msg("startup state recovery complete")
	return nil
}

func (e *Engine) validateLoadedState(state types.ResourceState) error {
	if state.ResourceName == "" {
		return fmt.Errorf("empty resource_name")
	}
	if !e.isLegalState(state.ResourceType, state.CurrentState) {
		return fmt.Errorf("current_state %q is not a legal state for kind %q", state.CurrentState, state.ResourceType)
	}
	if state.LastTransitionUnixTimestamp > time.Now().Add(time.Hour).Unix() {
		return fmt.Errorf("last_transition_unix_timestamp is implausibly far in the future")
	}
	return nil
}

// isLegalState reports whether name is a FromState or ToState somewhere in
// kind's transition table.
func (e *Engine) isLegalState(kind types.ResourceKind, name string) bool {
	for _, row := range e.tables[kind] {
		if row.FromState == name || row.ToState == name {
			return true
		}
	}
	return false
}

func (e *Engine) deleteInvalid(ctx context.Context, key string) {
	if err := e.store.Delete(ctx, key); err != nil {
		log.WithComponent("statemachine").Warn().Str("key", key).Err(err).Msg("failed to delete invalid state record")
	}
}
