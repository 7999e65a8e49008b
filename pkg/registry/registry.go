// Package registry implements the Node Registry: a durable index of cluster
// members keyed by node-id, with liveness derived from heartbeats and a
// periodic stale-node sweeper.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/metrics"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	nodeKeyPrefix         = "/piccolo/cluster/nodes/"
	topologyKey           = "/piccolo/cluster/topology/default"
	defaultStaleThreshold = 90 * time.Second
	sweepInterval         = 30 * time.Second
)

// Registry owns NodeInfo records. Reads may run concurrently; writes take
// a short per-call critical section guarding the in-memory cache, while
// durability is delegated to the KV port per key.
type Registry struct {
	store kv.Store
	logger zerolog.Logger

	staleThreshold time.Duration

	mu        sync.RWMutex
	nodes     map[string]types.NodeInfo
	clusterID string

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Registry over store. staleThreshold of 0 selects the
// documented default of 90 seconds.
func New(store kv.Store, staleThreshold time.Duration) *Registry {
	if staleThreshold <= 0 {
		staleThreshold = defaultStaleThreshold
	}
	return &Registry{
		store:          store,
		logger:         log.WithComponent("registry"),
		staleThreshold: staleThreshold,
		nodes:          make(map[string]types.NodeInfo),
	}
}

// Register validates and persists a new NodeInfo, bootstrapping the shared
// cluster_id on first use. It always stamps status=Initializing and
// last_heartbeat=now, overwriting whatever the caller supplied for those
// fields.
func (r *Registry) Register(ctx context.Context, node types.NodeInfo) (types.NodeInfo, error) {
	if node.NodeID == "" {
		return types.NodeInfo{}, fmt.Errorf("registry: node_id must not be empty")
	}
	if node.NodeName == "" {
		return types.NodeInfo{}, fmt.Errorf("registry: node_name must not be empty")
	}

	if _, err := r.ensureClusterID(ctx); err != nil {
		return types.NodeInfo{}, err
	}

	node.Status = types.NodeStatusInitializing
	node.CreatedAt = time.Now().Unix()
	node.LastHeartbeat = time.Now().Unix()
	if node.Labels == nil {
		node.Labels = map[string]string{}
	}

	if err := r.persist(ctx, node); err != nil {
		return types.NodeInfo{}, err
	}

	r.mu.Lock()
	r.nodes[node.NodeID] = node
	r.mu.Unlock()

	r.logger.Info().Str("node_id", node.NodeID).Str("node_name", node.NodeName).Msg("node registered")
	return node, nil
}

// ClusterID returns the bootstrapped cluster_id, creating it if this is the
// first node ever registered.
func (r *Registry) ClusterID(ctx context.Context) (string, error) {
	return r.ensureClusterID(ctx)
}

// ensureClusterID returns the shared cluster_id, creating it under the
// immutable topology key on first call.
func (r *Registry) ensureClusterID(ctx context.Context) (string, error) {
	r.mu.RLock()
	if r.clusterID != "" {
		id := r.clusterID
		r.mu.RUnlock()
		return id, nil
	}
	r.mu.RUnlock()

	raw, err := r.store.Get(ctx, topologyKey)
	if err == nil {
		id := string(raw)
		r.mu.Lock()
		r.clusterID = id
		r.mu.Unlock()
		return id, nil
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return "", fmt.Errorf("registry: read cluster_id: %w", err)
	}

	id := uuid.NewString()
	if err := r.store.Put(ctx, topologyKey, []byte(id)); err != nil {
		return "", fmt.Errorf("registry: bootstrap cluster_id: %w", err)
	}
	r.mu.Lock()
	r.clusterID = id
	r.mu.Unlock()
	return id, nil
}

// UpdateStatus applies a read-modify-write on node_id: status is always
// set; metrics, if non-nil, replaces the node's resource snapshot.
func (r *Registry) UpdateStatus(ctx context.Context, nodeID string, status types.NodeStatus, metrics *types.NodeResources) (types.NodeInfo, error) {
	r.mu.Lock()
	node, ok := r.nodes[nodeID]
	if !ok {
		r.mu.Unlock()
		return types.NodeInfo{}, fmt.Errorf("registry: node %q not found", nodeID)
	}
	node.Status = status
	node.LastHeartbeat = time.Now().Unix()
	if metrics != nil {
		node.Resources = *metrics
	}
	r.nodes[nodeID] = node
	r.mu.Unlock()

	if err := r.persist(ctx, node); err != nil {
		return types.NodeInfo{}, err
	}
	return node, nil
}

// Get returns a copy of a single node's record.
func (r *Registry) Get(nodeID string) (types.NodeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[nodeID]
	return n, ok
}

// List returns every node matching filter (nil matches all), in
// unspecified order.
func (r *Registry) List(filter func(types.NodeInfo) bool) []types.NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.NodeInfo, 0, len(r.nodes))
	for _, n := range r.nodes {
		if filter == nil || filter(n) {
			out = append(out, n)
		}
	}
	return out
}

// Remove deletes a node's record from both the cache and the KV port.
func (r *Registry) Remove(ctx context.Context, nodeID string) error {
	r.mu.Lock()
	delete(r.nodes, nodeID)
	r.mu.Unlock()
	return r.store.Delete(ctx, nodeKeyPrefix+nodeID)
}

// Topology partitions every known node by role.
func (r *Registry) Topology(clusterID string) types.ClusterTopology {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topo := types.ClusterTopology{
		ClusterID:    clusterID,
		TopologyType: types.TopologySimple,
		Config:       map[string]string{},
	}
	for _, n := range r.nodes {
		switch n.Role {
		case types.NodeRoleMaster:
			topo.MasterNodes = append(topo.MasterNodes, n)
		default:
			topo.SubNodes = append(topo.SubNodes, n)
		}
	}
	return topo
}

// SweepStale marks every Online node whose heartbeat is older than the
// configured staleThreshold as Offline, returning the set of swept node
// ids.
func (r *Registry) SweepStale(ctx context.Context) []string {
	now := time.Now().Unix()
	threshold := int64(r.staleThreshold / time.Second)

	var stale []types.NodeInfo
	r.mu.Lock()
	for id, n := range r.nodes {
		if n.Status == types.NodeStatusOnline && now-n.LastHeartbeat > threshold {
			n.Status = types.NodeStatusOffline
			r.nodes[id] = n
			stale = append(stale, n)
		}
	}
	r.mu.Unlock()

	swept := make([]string, 0, len(stale))
	for _, n := range stale {
		if err := r.persist(ctx, n); err != nil {
			r.logger.Error().Err(err).Str("node_id", n.NodeID).Msg("failed to persist swept node")
			continue
		}
		swept = append(swept, n.NodeID)
	}
	if len(swept) > 0 {
		r.logger.Warn().Strs("node_ids", swept).Msg("swept stale nodes to offline")
		metrics.StaleNodesSweptTotal.Add(float64(len(swept)))
	}
	return swept
}

// StartSweeper runs SweepStale on a 30-second ticker until ctx is
// cancelled or Stop is called.
func (r *Registry) StartSweeper(ctx context.Context) {
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.sweepLoop(ctx)
}

// Stop signals the sweeper to exit and waits for it to do so.
func (r *Registry) Stop() {
	if r.stopCh == nil {
		return
	}
	close(r.stopCh)
	<-r.doneCh
}

func (r *Registry) sweepLoop(ctx context.Context) {
	defer close(r.doneCh)
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.SweepStale(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) persist(ctx context.Context, node types.NodeInfo) error {
	raw, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("registry: marshal node: %w", err)
	}
	return r.store.Put(ctx, nodeKeyPrefix+node.NodeID, raw)
}

// LoadAll populates the in-memory cache from the KV port, intended for use
// at process startup.
func (r *Registry) LoadAll(ctx context.Context) error {
	entries, err := r.store.List(ctx, nodeKeyPrefix)
	if err != nil {
		return fmt.Errorf("registry: list nodes: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, raw := range entries {
		var node types.NodeInfo
		if err := json.Unmarshal(raw, &node); err != nil {
			r.logger.Warn().Str("key", key).Err(err).Msg("dropping unparseable node record")
			continue
		}
		r.nodes[node.NodeID] = node
	}
	return nil
}
