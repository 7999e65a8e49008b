package metrics

import (
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
)

// NodeLister is the subset of the Node Registry's contract the collector
// needs to poll cluster membership.
type NodeLister interface {
	List(filter func(types.NodeInfo) bool) []types.NodeInfo
}

// Collector periodically samples cluster-wide gauges that no single
// component event can update, such as the node count broken down by role
// and status.
type Collector struct {
	registry NodeLister
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector over the given registry.
func NewCollector(registry NodeLister) *Collector {
	return &Collector{
		registry: registry,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
}

func (c *Collector) collectNodeMetrics() {
	nodes := c.registry.List(nil)

	nodeCounts := make(map[string]map[string]int)
	for _, node := range nodes {
		role, status := string(node.Role), string(node.Status)
		if nodeCounts[role] == nil {
			nodeCounts[role] = make(map[string]int)
		}
		nodeCounts[role][status]++
	}

	for role, statuses := range nodeCounts {
		for status, count := range statuses {
			NodesTotal.WithLabelValues(role, status).Set(float64(count))
		}
	}
}
