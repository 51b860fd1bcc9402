package nodeshealth

import (
	"slices"
	"sync"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

// Noop tracks nodes without scoring them, every node stays active.
type Noop struct {
	mu    sync.RWMutex
	nodes []*cluster.Node
}

// NewNoop creates a Noop tracker with initial nodes.
func NewNoop(initial []*cluster.Node) *Noop {
	return &Noop{nodes: slices.Clone(initial)}
}

// ActiveNodes returns every known node.
func (n *Noop) ActiveNodes() []*cluster.Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.nodes)
}

// QuarantinedNodes is always empty.
func (*Noop) QuarantinedNodes() []*cluster.Node { return nil }

// AddNode implements Tracker.
func (n *Noop) AddNode(node *cluster.Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !slices.Contains(n.nodes, node) {
		n.nodes = append(n.nodes, node)
	}
}

// RemoveNode implements Tracker.
func (n *Noop) RemoveNode(node *cluster.Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes = slices.DeleteFunc(n.nodes, func(x *cluster.Node) bool { return x == node })
}

// ReportNodeError implements Tracker, errors are ignored.
func (*Noop) ReportNodeError(*cluster.Node, error) {}

// TryReleaseQuarantinedNodes implements Tracker.
func (*Noop) TryReleaseQuarantinedNodes() []*cluster.Node { return nil }

// Start implements Tracker.
func (*Noop) Start() {}

// Stop implements Tracker.
func (*Noop) Stop() {}

var _ Tracker = (*Noop)(nil)
