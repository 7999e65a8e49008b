// Package statemanager fans in ContainerList and StateChange events, drives
// the State Machine Engine, and forwards its emitted ActionCommands to an
// executor.
package statemanager

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/metrics"
	"github.com/eclipse-pullpiri/pullpiri/pkg/statemachine"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/rs/zerolog"
)

const (
	criticalRatioThreshold = 0.95
	warningRatioThreshold  = 0.80
)

// ActionExecutor consumes a committed transition's ActionCommand.
// ControllerExecutor resolves the one action that names a concrete
// side effect (a Scenario's target-package dispatch) and logs everything
// else — the remaining action names are operational hooks for
// collaborators this subsystem does not own (log/alert emission,
// resource cleanup, and so on).
type ActionExecutor interface {
	Execute(ctx context.Context, cmd types.ActionCommand) error
}

// ScenarioTrigger is the subset of the Action Controller's contract
// ControllerExecutor needs.
type ScenarioTrigger interface {
	Trigger(ctx context.Context, scenarioName string) error
}

// ControllerExecutor adapts a ScenarioTrigger (the Action Controller) into
// an ActionExecutor: the single action name that names a concrete
// scenario-level side effect is dispatched; all others are logged only.
type ControllerExecutor struct {
	Controller ScenarioTrigger
	logger     zerolog.Logger
}

// NewControllerExecutor builds a ControllerExecutor.
func NewControllerExecutor(controller ScenarioTrigger) *ControllerExecutor {
	return &ControllerExecutor{Controller: controller, logger: log.WithComponent("statemanager")}
}

func (c *ControllerExecutor) Execute(ctx context.Context, cmd types.ActionCommand) error {
	if cmd.Action != "execute_action_on_target_package" {
		c.logger.Debug().Str("action", cmd.Action).Str("resource_key", cmd.ResourceKey).Msg("action command logged, no dispatcher bound")
		return nil
	}
	parts := strings.SplitN(cmd.ResourceKey, "::", 2)
	if len(parts) != 2 {
		return nil
	}
	return c.Controller.Trigger(ctx, parts[1])
}

// Service is the State Manager: two independent receive loops, each
// processed serially in arrival order, driving the State Machine Engine
// and an ActionExecutor.
type Service struct {
	engine   *statemachine.Engine
	executor ActionExecutor
	logger   zerolog.Logger

	stateChangeCh chan types.StateChange
	containerCh   chan types.ContainerList

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Service. A nil executor installs a no-op executor.
func New(engine *statemachine.Engine, executor ActionExecutor, stateChangeBuffer, containerBuffer int) *Service {
	if executor == nil {
		executor = noopExecutor{}
	}
	if stateChangeBuffer <= 0 {
		stateChangeBuffer = 100
	}
	if containerBuffer <= 0 {
		containerBuffer = 100
	}
	return &Service{
		engine:        engine,
		executor:      executor,
		logger:        log.WithComponent("statemanager"),
		stateChangeCh: make(chan types.StateChange, stateChangeBuffer),
		containerCh:   make(chan types.ContainerList, containerBuffer),
	}
}

type noopExecutor struct{}

func (noopExecutor) Execute(context.Context, types.ActionCommand) error { return nil }

// SubmitStateChange enqueues an inbound StateChange for serial processing.
func (s *Service) SubmitStateChange(change types.StateChange) {
	s.stateChangeCh <- change
}

// SubmitContainerList enqueues an inbound ContainerList report for serial
// processing.
func (s *Service) SubmitContainerList(list types.ContainerList) {
	s.containerCh <- list
}

// Start launches the two independent receive loops plus the engine's
// action-forwarding loop.
func (s *Service) Start(ctx context.Context) {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.stateChangeLoop(ctx) }()
	go func() { defer wg.Done(); s.containerListLoop(ctx) }()
	go func() { defer wg.Done(); s.actionForwardLoop(ctx) }()
	go func() { wg.Wait(); close(s.doneCh) }()
}

// Stop signals all loops to exit and waits for them to do so.
func (s *Service) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
}

func (s *Service) stateChangeLoop(ctx context.Context) {
	for {
		select {
		case change := <-s.stateChangeCh:
			result := s.engine.ProcessStateChange(ctx, change)
			if !result.Success {
				s.logger.Warn().Str("resource_name", change.ResourceName).Str("error_code", string(result.ErrorCode)).Msg(result.Message)
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) actionForwardLoop(ctx context.Context) {
	for {
		select {
		case cmd := <-s.engine.Actions():
			if err := s.executor.Execute(ctx, cmd); err != nil {
				s.logger.Error().Err(err).Str("action", cmd.Action).Msg("action execution failed")
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) containerListLoop(ctx context.Context) {
	for {
		select {
		case list := <-s.containerCh:
			s.evaluateContainerList(list)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// evaluateContainerList computes CPU and memory ratios for each container
// and logs CRITICAL/WARNING alerts past the documented thresholds. A zero
// memory limit is treated as "no limit" and skipped; unparseable numeric
// fields are silently ignored rather than treated as zero.
func (s *Service) evaluateContainerList(list types.ContainerList) {
	for _, c := range list.Containers {
		if ratio, ok := cpuRatio(c.Stats); ok {
			s.alertOnRatio(list.NodeName, c, "cpu", ratio)
		}
		if ratio, ok := memoryRatio(c.Stats); ok {
			s.alertOnRatio(list.NodeName, c, "memory", ratio)
		}
	}
}

func (s *Service) alertOnRatio(nodeName string, c types.ContainerInfo, kind string, ratio float64) {
	switch {
	case ratio > criticalRatioThreshold:
		s.logger.Error().Str("node_name", nodeName).Str("container_id", c.ID).Str("metric", kind).Float64("ratio", ratio).Msg("CRITICAL resource threshold exceeded")
		metrics.ResourceAlertsTotal.WithLabelValues(kind, "critical").Inc()
	case ratio > warningRatioThreshold:
		s.logger.Warn().Str("node_name", nodeName).Str("container_id", c.ID).Str("metric", kind).Float64("ratio", ratio).Msg("resource threshold warning")
		metrics.ResourceAlertsTotal.WithLabelValues(kind, "warning").Inc()
	}
}

func cpuRatio(stats map[string]string) (float64, bool) {
	kernel, ok1 := parseFloat(stats["cpu_kernel_ns"])
	user, ok2 := parseFloat(stats["cpu_user_ns"])
	total, ok3 := parseFloat(stats["cpu_total_ns"])
	if !ok1 || !ok2 || !ok3 || total == 0 {
		return 0, false
	}
	return (kernel + user) / total, true
}

func memoryRatio(stats map[string]string) (float64, bool) {
	usage, ok1 := parseFloat(stats["memory_usage_bytes"])
	limit, ok2 := parseFloat(stats["memory_limit_bytes"])
	if !ok1 || !ok2 || limit == 0 {
		return 0, false
	}
	return usage / limit, true
}

func parseFloat(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
