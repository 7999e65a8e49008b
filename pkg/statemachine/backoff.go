package statemachine

import (
	"sync"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
)

// backoffTimers tracks, per resource key, the monotonic instant backoff
// started. Only Model resources in CrashLoopBackOff ever have an entry;
// the entry is never explicitly cleared, it simply stops gating once
// BackoffDuration has elapsed (mirroring the original source, which never
// removes the map entry either).
type backoffTimers struct {
	mu       sync.RWMutex
	duration time.Duration
	timers   map[string]time.Time
}

func newBackoffTimers(duration time.Duration) *backoffTimers {
	return &backoffTimers{duration: duration, timers: make(map[string]time.Time)}
}

// checkBackoffPeriod rejects a transition attempt with PreconditionFailed
// when resourceKey is currently a Model in CrashLoopBackOff and less than
// the configured duration has elapsed since backoff began.
func (b *backoffTimers) checkBackoffPeriod(resourceKey, currentState string) (ok bool, remaining time.Duration) {
	if currentState != ModelCrashLoopBackOff {
		return true, 0
	}
	b.mu.RLock()
	start, found := b.timers[resourceKey]
	b.mu.RUnlock()
	if !found {
		return true, 0
	}
	elapsed := time.Since(start)
	if elapsed >= b.duration {
		return true, 0
	}
	return false, b.duration - elapsed
}

// setBackoffTimer records `now` as the backoff anchor when a transition
// lands on the Model CrashLoopBackOff state.
func (b *backoffTimers) setBackoffTimer(resourceKey, toState string) {
	if toState != ModelCrashLoopBackOff {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timers[resourceKey] = time.Now()
}

// restore reconstructs a virtual backoff anchor for a resource loaded from
// the KV port at startup, from its stored UNIX-seconds timestamp. If the
// stored elapsed time already exceeds the backoff window, the anchor is
// clamped so the gate opens immediately rather than computing a bogus
// negative remaining duration.
func (b *backoffTimers) restore(resourceKey string, state *types.ResourceState) {
	if state.CurrentState != ModelCrashLoopBackOff {
		return
	}
	elapsedSinceTransition := time.Since(time.Unix(state.LastTransitionUnixTimestamp, 0))

	var anchor time.Time
	if elapsedSinceTransition < b.duration {
		anchor = time.Now().Add(-elapsedSinceTransition)
	} else {
		anchor = time.Now().Add(-(b.duration + time.Second))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.timers[resourceKey] = anchor
}
