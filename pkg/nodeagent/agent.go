// Package nodeagent implements the edge half of node registration and
// heartbeat, plus YAML manifest intake and container inspection.
package nodeagent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/metrics"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/rs/zerolog"
)

const (
	heartbeatInterval  = 30 * time.Second
	yamlIntakeCapacity = 100
	inspectConcurrency = 8
)

// ErrUnavailable is returned by SubmitYAML when the intake channel is
// full; callers should surface this as backpressure to the caller's RPC
// layer rather than block.
var ErrUnavailable = errors.New("nodeagent: yaml intake queue is full")

// MasterClient is the registration/heartbeat RPC surface the agent calls
// out on. A send failure on either method flips the agent's connected
// flag so the next heartbeat tick re-registers first.
type MasterClient interface {
	RegisterNode(ctx context.Context, node types.NodeInfo) error
	Heartbeat(ctx context.Context, nodeID string, status types.NodeStatus, resources types.NodeResources) error
}

// ContainerRuntime is the local container-runtime inspection port.
type ContainerRuntime interface {
	ListContainerIDs(ctx context.Context) ([]string, error)
	InspectContainer(ctx context.Context, id string) (types.ContainerInfo, error)
}

// MetricsSource supplies the node's current resource utilization for
// heartbeat payloads.
type MetricsSource func() types.NodeResources

// YAMLHandler processes one inbound manifest payload.
type YAMLHandler func(ctx context.Context, payload []byte) error

// Agent is the Node Agent runtime: it owns a connection flag, a bounded
// YAML intake queue, and (if a runtime is configured) container
// inspection.
type Agent struct {
	nodeID   string
	nodeName string
	role     types.NodeRole

	master  MasterClient
	runtime ContainerRuntime
	metrics MetricsSource
	handler YAMLHandler

	logger zerolog.Logger

	connected atomic.Bool
	yamlCh    chan []byte

	stopCh chan struct{}
	doneCh chan struct{}
}

// Options configures a new Agent.
type Options struct {
	NodeID   string
	NodeName string
	Role     types.NodeRole
	Master   MasterClient
	Runtime  ContainerRuntime
	Metrics  MetricsSource
	Handler  YAMLHandler
}

// New constructs an Agent. A nil Metrics source reports zeroed resources;
// a nil Handler silently discards submitted manifests.
func New(opts Options) *Agent {
	if opts.Metrics == nil {
		opts.Metrics = func() types.NodeResources { return types.NodeResources{} }
	}
	if opts.Handler == nil {
		opts.Handler = func(context.Context, []byte) error { return nil }
	}
	return &Agent{
		nodeID:   opts.NodeID,
		nodeName: opts.NodeName,
		role:     opts.Role,
		master:   opts.Master,
		runtime:  opts.Runtime,
		metrics:  opts.Metrics,
		handler:  opts.Handler,
		logger:   log.WithComponent("nodeagent"),
		yamlCh:   make(chan []byte, yamlIntakeCapacity),
	}
}

// Start launches the heartbeat loop and the YAML-intake drain loop.
func (a *Agent) Start(ctx context.Context) {
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.heartbeatLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		a.intakeLoop(ctx)
	}()
	go func() {
		wg.Wait()
		close(a.doneCh)
	}()
}

// Stop signals both loops to exit and waits for them to do so.
func (a *Agent) Stop() {
	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	<-a.doneCh
}

func (a *Agent) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	a.tick(ctx)
	for {
		select {
		case <-ticker.C:
			a.tick(ctx)
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) tick(ctx context.Context) {
	if !a.connected.Load() {
		if err := a.master.RegisterNode(ctx, types.NodeInfo{
			NodeID:   a.nodeID,
			NodeName: a.nodeName,
			Role:     a.role,
		}); err != nil {
			a.logger.Error().Err(err).Msg("failed to register with master")
			return
		}
		a.connected.Store(true)
	}

	err := a.master.Heartbeat(ctx, a.nodeID, types.NodeStatusOnline, a.metrics())
	if err != nil {
		a.logger.Warn().Err(err).Msg("heartbeat failed, will re-register next tick")
		a.connected.Store(false)
		metrics.HeartbeatsTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.HeartbeatsTotal.WithLabelValues("ok").Inc()
}

// SubmitYAML places payload on the bounded intake queue, returning
// ErrUnavailable instead of blocking when the queue is full.
func (a *Agent) SubmitYAML(payload []byte) error {
	select {
	case a.yamlCh <- payload:
		return nil
	default:
		metrics.YAMLIntakeRejectedTotal.Inc()
		return ErrUnavailable
	}
}

func (a *Agent) intakeLoop(ctx context.Context) {
	for {
		select {
		case payload := <-a.yamlCh:
			if err := a.handler(ctx, payload); err != nil {
				a.logger.Error().Err(err).Msg("failed to process yaml manifest")
			}
		case <-a.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// InspectContainers lists local containers and fetches each one's detail
// concurrently, bounded by inspectConcurrency.
func (a *Agent) InspectContainers(ctx context.Context) (types.ContainerList, error) {
	if a.runtime == nil {
		return types.ContainerList{NodeName: a.nodeName}, nil
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ContainerInspectDuration)

	ids, err := a.runtime.ListContainerIDs(ctx)
	if err != nil {
		return types.ContainerList{}, err
	}

	results := make([]types.ContainerInfo, len(ids))
	sem := make(chan struct{}, inspectConcurrency)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			info, err := a.runtime.InspectContainer(ctx, id)
			if err != nil {
				a.logger.Warn().Str("container_id", id).Err(err).Msg("failed to inspect container")
				return
			}
			results[i] = info
		}(i, id)
	}
	wg.Wait()

	containers := make([]types.ContainerInfo, 0, len(results))
	for _, r := range results {
		if r.ID != "" {
			containers = append(containers, r)
		}
	}
	return types.ContainerList{NodeName: a.nodeName, Containers: containers}, nil
}
