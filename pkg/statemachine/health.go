package statemachine

import (
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
)

// maxConsecutiveFailures is the threshold after which a resource's
// HealthStatus flips to unhealthy (§8: "After 3 consecutive failed
// transitions on a resource, its HealthStatus.healthy is false").
const maxConsecutiveFailures = 3

// applyHealthOutcome updates a ResourceState's HealthStatus in place for
// the outcome of one transition attempt: success resets the failure streak
// and restores healthy=true; failure increments the streak and flips
// healthy=false once the streak reaches maxConsecutiveFailures.
func applyHealthOutcome(h *types.HealthStatus, success bool, message string) {
	now := time.Now().Unix()
	h.LastCheckUnixTS = now
	if success {
		h.Healthy = true
		h.ConsecutiveFailures = 0
		h.StatusMessage = message
		return
	}
	h.ConsecutiveFailures++
	h.StatusMessage = message
	if h.ConsecutiveFailures >= maxConsecutiveFailures {
		h.Healthy = false
	}
}

// freshHealthStatus builds the HealthStatus a brand-new ResourceState
// record starts with.
func freshHealthStatus() types.HealthStatus {
	return types.HealthStatus{
		Healthy:             true,
		StatusMessage:       "Healthy",
		LastCheckUnixTS:     time.Now().Unix(),
		ConsecutiveFailures: 0,
	}
}
