// Package statemachine implements the per-kind finite state machines that
// validate and commit resource state transitions: fixed transition tables,
// event inference, a pluggable guard predicate table, CrashLoopBackOff
// dwell-time gating, consecutive-failure health tracking, and a
// write-through Durable KV port.
package statemachine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/metrics"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
)

// Engine owns the per-kind transition tables and the single in-memory cache
// of ResourceState records backed by a Durable KV port. ProcessStateChange
// is meant to be called from a single owning goroutine (the State Manager
// Service's receive loop); it takes the mutex only around the cache
// write itself, and Get and the other read accessors take the same mutex
// since they may be called from elsewhere.
type Engine struct {
	store   kv.Store
	tables  map[types.ResourceKind][]types.StateTransition
	events  eventInferenceTable
	guards  GuardTable
	backoff *backoffTimers

	actions chan types.ActionCommand

	mu    sync.RWMutex
	cache map[string]*types.ResourceState

	onActionDropped func(cmd types.ActionCommand)
}

// Options configures a new Engine. Zero-value Options produce a usable
// engine with the fixed default guard table and a 30s backoff window.
type Options struct {
	BackoffDuration     time.Duration
	ActionQueueCapacity int
	Guards              GuardTable
	OnActionDropped     func(cmd types.ActionCommand)
}

// NewEngine constructs an Engine over the given Durable KV port.
func NewEngine(store kv.Store, opts Options) *Engine {
	if opts.BackoffDuration <= 0 {
		opts.BackoffDuration = 30 * time.Second
	}
	if opts.ActionQueueCapacity <= 0 {
		opts.ActionQueueCapacity = 1024
	}
	if opts.Guards == nil {
		opts.Guards = DefaultGuardTable{}
	}

	tables := defaultTransitionTables()
	return &Engine{
		store:           store,
		tables:          tables,
		events:          buildEventInferenceTable(tables),
		guards:          opts.Guards,
		backoff:         newBackoffTimers(opts.BackoffDuration),
		actions:         make(chan types.ActionCommand, opts.ActionQueueCapacity),
		cache:           make(map[string]*types.ResourceState),
		onActionDropped: opts.OnActionDropped,
	}
}

// Actions returns the channel the Action Controller drains committed
// transitions' commands from.
func (e *Engine) Actions() <-chan types.ActionCommand {
	return e.actions
}

// Get returns a copy of a resource's current cached state, if known.
func (e *Engine) Get(kind types.ResourceKind, name string) (types.ResourceState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.cache[resourceKey(kind, name)]
	if !ok {
		return types.ResourceState{}, false
	}
	return *s, true
}

// findValidTransition returns the table row matching (fromState, event,
// toState) for kind, or ok=false if none exists.
func (e *Engine) findValidTransition(kind types.ResourceKind, fromState, event, toState string) (types.StateTransition, bool) {
	for _, row := range e.tables[kind] {
		if row.FromState == fromState && row.Event == event && row.ToState == toState {
			return row, true
		}
	}
	return types.StateTransition{}, false
}

func validateStateChange(change types.StateChange) error {
	if change.ResourceName == "" {
		return fmt.Errorf("resource_name must not be empty")
	}
	if change.ResourceType == "" {
		return fmt.Errorf("resource_type must not be empty")
	}
	if change.TargetState == "" {
		return fmt.Errorf("target_state must not be empty")
	}
	return nil
}

// ProcessStateChange validates and, if valid, commits a requested state
// transition: persist to the KV port, update the in-memory cache, arm or
// leave alone the CrashLoopBackOff backoff timer, enqueue the resulting
// ActionCommand non-blocking, and update the resource's HealthStatus.
func (e *Engine) ProcessStateChange(ctx context.Context, change types.StateChange) types.TransitionResult {
	key := resourceKey(change.ResourceType, change.ResourceName)
	logger := log.WithComponent("statemachine").With().Str("resource_key", key).Str("transition_id", change.TransitionID).Logger()

	if err := validateStateChange(change); err != nil {
		metrics.TransitionsRejectedTotal.WithLabelValues(string(change.ResourceType), string(types.ErrInvalidRequest)).Inc()
		return types.TransitionResult{
			Success:      false,
			TransitionID: change.TransitionID,
			ErrorCode:    types.ErrInvalidRequest,
			Message:      err.Error(),
		}
	}

	timer := metrics.NewTimer()

	prior, err := loadResourceState(ctx, e.store, change.ResourceType, change.ResourceName)
	if err != nil {
		log.OperationError(logger, "load_current_state", err)
		metrics.TransitionsRejectedTotal.WithLabelValues(string(change.ResourceType), string(types.ErrInternalError)).Inc()
		return e.failResult(change, types.ErrInternalError, "failed to load current state")
	}
	currentState := currentStateOf(prior, change.CurrentState)

	if ok, remaining := e.backoff.checkBackoffPeriod(key, currentState); !ok {
		msg := fmt.Sprintf("resource is in backoff, %s remaining", remaining.Round(time.Second))
		e.recordHealthFailure(change.ResourceType, change.ResourceName, msg)
		metrics.TransitionsRejectedTotal.WithLabelValues(string(change.ResourceType), string(types.ErrPreconditionFailed)).Inc()
		return e.failResult(change, types.ErrPreconditionFailed, msg)
	}

	event := e.events.inferEvent(change.ResourceType, currentState, change.TargetState)

	row, ok := e.findValidTransition(change.ResourceType, currentState, event, change.TargetState)
	if !ok {
		msg := fmt.Sprintf("no valid transition from %q to %q", currentState, change.TargetState)
		e.recordHealthFailure(change.ResourceType, change.ResourceName, msg)
		metrics.TransitionsRejectedTotal.WithLabelValues(string(change.ResourceType), string(types.ErrInvalidStateTransition)).Inc()
		return e.failResult(change, types.ErrInvalidStateTransition, msg)
	}

	if row.Condition != "" {
		guardCtx := GuardContext{ResourceName: change.ResourceName, CurrentState: currentState, TargetState: change.TargetState}
		if !e.guards.Evaluate(row.Condition, guardCtx) {
			msg := fmt.Sprintf("guard %q not satisfied", row.Condition)
			e.recordHealthFailure(change.ResourceType, change.ResourceName, msg)
			metrics.TransitionsRejectedTotal.WithLabelValues(string(change.ResourceType), string(types.ErrPreconditionFailed)).Inc()
			return e.failResult(change, types.ErrPreconditionFailed, msg)
		}
	}

	updated := buildUpdatedState(prior, change, change.ResourceType, row.ToState)
	if prior != nil {
		applyHealthOutcome(&updated.HealthStatus, true, "transition committed")
	}

	if err := persistResourceState(ctx, e.store, change.ResourceType, updated); err != nil {
		log.OperationError(logger, "persist_resource_state", err)
		metrics.TransitionsRejectedTotal.WithLabelValues(string(change.ResourceType), string(types.ErrInternalError)).Inc()
		return e.failResult(change, types.ErrInternalError, "failed to persist resource state")
	}

	e.mu.Lock()
	e.cache[key] = &updated
	e.mu.Unlock()

	timer.ObserveDuration(metrics.WriteThroughDuration)
	e.backoff.setBackoffTimer(key, row.ToState)
	if row.ToState == ModelCrashLoopBackOff {
		metrics.CrashLoopBackOffTotal.WithLabelValues(string(change.ResourceType)).Inc()
	}

	if row.Action != "" {
		cmd := types.ActionCommand{
			Action:       row.Action,
			ResourceKey:  key,
			ResourceType: change.ResourceType,
			TransitionID: change.TransitionID,
			Context: map[string]string{
				"from_state": currentState,
				"to_state":   row.ToState,
				"event":      event,
			},
		}
		select {
		case e.actions <- cmd:
		default:
			logger.Warn().Str("action", cmd.Action).Msg("action queue full, dropping command")
			metrics.ActionQueueDroppedTotal.Inc()
			if e.onActionDropped != nil {
				e.onActionDropped(cmd)
			}
		}
	}

	metrics.TransitionsAppliedTotal.WithLabelValues(string(change.ResourceType)).Inc()
	log.OperationSuccess(logger, fmt.Sprintf("process_state_change: %s -> %s via %s", currentState, row.ToState, event))

	return types.TransitionResult{
		Success:      true,
		CurrentState: row.ToState,
		TransitionID: change.TransitionID,
		ErrorCode:    types.ErrSuccess,
		Message:      "transition committed",
	}
}

func (e *Engine) failResult(change types.StateChange, code types.ErrorCode, msg string) types.TransitionResult {
	return types.TransitionResult{
		Success:      false,
		TransitionID: change.TransitionID,
		ErrorCode:    code,
		Message:      msg,
	}
}

// recordHealthFailure updates a resource's HealthStatus for a rejected
// transition attempt, persisting the updated record best-effort (a failure
// to persist the health update does not fail the caller's request — the
// rejection itself already stands).
func (e *Engine) recordHealthFailure(kind types.ResourceKind, name, message string) {
	key := resourceKey(kind, name)
	e.mu.Lock()
	state, ok := e.cache[key]
	if !ok {
		e.mu.Unlock()
		return
	}
	applyHealthOutcome(&state.HealthStatus, false, message)
	snapshot := *state
	e.mu.Unlock()

	if err := persistResourceState(context.Background(), e.store, kind, snapshot); err != nil {
		log.WithComponent("statemachine").Warn().Err(err).Str("resource_key", key).Msg("failed to persist health status update")
	}
}
