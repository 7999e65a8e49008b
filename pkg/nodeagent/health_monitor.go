package nodeagent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/errorbus"
	"github.com/eclipse-pullpiri/pullpiri/pkg/health"
	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/rs/zerolog"
)

const healthSyncInterval = 5 * time.Second

// containerHealthMonitor tracks health check state for a single container.
type containerHealthMonitor struct {
	checker health.Checker
	status  *health.Status
	config  health.Config
}

// HealthMonitor periodically discovers running containers via an Agent's
// InspectContainers and, for each one that carries a recognized health
// check configuration in its Config map, runs the matching checker on a
// loop and reports failures to an error bus.
type HealthMonitor struct {
	agent    *Agent
	reporter errorbus.Reporter
	logger   zerolog.Logger

	mu        sync.Mutex
	monitors  map[string]*containerHealthMonitor
	cancelFns map[string]context.CancelFunc

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHealthMonitor builds a HealthMonitor over agent, reporting failures
// through reporter.
func NewHealthMonitor(agent *Agent, reporter errorbus.Reporter) *HealthMonitor {
	return &HealthMonitor{
		agent:     agent,
		reporter:  reporter,
		logger:    log.WithComponent("nodeagent.health"),
		monitors:  make(map[string]*containerHealthMonitor),
		cancelFns: make(map[string]context.CancelFunc),
	}
}

// Start launches the discovery/sync loop.
func (hm *HealthMonitor) Start(ctx context.Context) {
	hm.stopCh = make(chan struct{})
	hm.doneCh = make(chan struct{})
	go func() {
		defer close(hm.doneCh)
		hm.syncLoop(ctx)
	}()
}

// Stop signals the sync loop and every running check to exit.
func (hm *HealthMonitor) Stop() {
	if hm.stopCh == nil {
		return
	}
	close(hm.stopCh)
	<-hm.doneCh
	hm.mu.Lock()
	for _, cancel := range hm.cancelFns {
		cancel()
	}
	hm.mu.Unlock()
}

func (hm *HealthMonitor) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(healthSyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			hm.sync(ctx)
		case <-hm.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (hm *HealthMonitor) sync(ctx context.Context) {
	list, err := hm.agent.InspectContainers(ctx)
	if err != nil {
		hm.logger.Warn().Err(err).Msg("failed to inspect containers for health sync")
		return
	}

	seen := make(map[string]bool, len(list.Containers))
	hm.mu.Lock()
	for _, c := range list.Containers {
		seen[c.ID] = true
		if _, exists := hm.monitors[c.ID]; exists {
			continue
		}
		checker, config, ok := buildChecker(c)
		if !ok {
			continue
		}
		monitor := &containerHealthMonitor{checker: checker, status: health.NewStatus(), config: config}
		hm.monitors[c.ID] = monitor

		checkCtx, cancel := context.WithCancel(ctx)
		hm.cancelFns[c.ID] = cancel
		go hm.checkLoop(checkCtx, c.ID, monitor)
	}
	for id, cancel := range hm.cancelFns {
		if !seen[id] {
			cancel()
			delete(hm.cancelFns, id)
			delete(hm.monitors, id)
		}
	}
	hm.mu.Unlock()
}

func (hm *HealthMonitor) checkLoop(ctx context.Context, containerID string, monitor *containerHealthMonitor) {
	ticker := time.NewTicker(monitor.config.Interval)
	defer ticker.Stop()

	hm.runCheck(ctx, containerID, monitor)
	for {
		select {
		case <-ticker.C:
			hm.runCheck(ctx, containerID, monitor)
		case <-ctx.Done():
			return
		}
	}
}

func (hm *HealthMonitor) runCheck(ctx context.Context, containerID string, monitor *containerHealthMonitor) {
	checkCtx, cancel := context.WithTimeout(ctx, monitor.config.Timeout)
	defer cancel()

	result := monitor.checker.Check(checkCtx)
	wasHealthy := monitor.status.Healthy
	monitor.status.Update(result, monitor.config)

	if !monitor.status.Healthy && wasHealthy {
		hm.reporter.Report(fmt.Errorf("container %s failed health check: %s", containerID, result.Message),
			"container transitioned to unhealthy")
	}
}

// buildChecker reads a recognized health check configuration out of a
// container's Config map (health_check_type plus type-specific fields) and
// returns false if none is present or the type is unrecognized.
func buildChecker(c types.ContainerInfo) (health.Checker, health.Config, bool) {
	kind := c.Config["health_check_type"]
	if kind == "" {
		return nil, health.Config{}, false
	}

	config := health.DefaultConfig()
	if v, err := strconv.Atoi(c.Config["health_check_interval_seconds"]); err == nil && v > 0 {
		config.Interval = time.Duration(v) * time.Second
	}
	if v, err := strconv.Atoi(c.Config["health_check_timeout_seconds"]); err == nil && v > 0 {
		config.Timeout = time.Duration(v) * time.Second
	}
	if v, err := strconv.Atoi(c.Config["health_check_retries"]); err == nil && v > 0 {
		config.Retries = v
	}

	switch kind {
	case "http":
		return health.NewHTTPChecker(c.Config["health_check_endpoint"]), config, true
	case "tcp":
		return health.NewTCPChecker(c.Config["health_check_endpoint"]), config, true
	case "exec":
		cmd := strings.Fields(c.Config["health_check_command"])
		if len(cmd) == 0 {
			return nil, health.Config{}, false
		}
		return health.NewExecChecker(cmd).WithContainer(c.ID), config, true
	default:
		return nil, health.Config{}, false
	}
}
