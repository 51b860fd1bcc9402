package routing

import (
	"go.uber.org/atomic"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

// RoundRobinPolicy rotates the starting node by one on every plan.
//
// As a root policy it rotates the snapshot nodes. For a confirmed LWT with a
// token the offset is derived from the token instead, so retries of the same
// statement walk the same nodes while different partitions still spread.
// Concurrent callers may occasionally get the same offset, which only costs
// fairness.
type RoundRobinPolicy struct {
	next *atomic.Uint64
}

// NewRoundRobinPolicy creates a RoundRobinPolicy.
func NewRoundRobinPolicy() *RoundRobinPolicy {
	return &RoundRobinPolicy{next: atomic.NewUint64(0)}
}

// Name implements Policy.
func (p *RoundRobinPolicy) Name() string { return "RoundRobinPolicy" }

// Plan implements Policy.
func (p *RoundRobinPolicy) Plan(stmt Statement, snap *cluster.Snapshot) Plan {
	if snap == nil || snap.Len() == 0 {
		return EmptyPlan()
	}
	nodes := snap.Nodes()
	if stmt.IsConfirmedLWT && stmt.HasToken {
		return NewRotatedPlan(nodes, int(uint64(stmt.Token)%uint64(len(nodes))))
	}
	return p.ApplyChildPolicy(nodes)
}

// ApplyChildPolicy implements ChildPolicy.
func (p *RoundRobinPolicy) ApplyChildPolicy(nodes []*cluster.Node) Plan {
	if len(nodes) == 0 {
		return EmptyPlan()
	}
	offset := (p.next.Inc() - 1) % uint64(len(nodes))
	return NewRotatedPlan(nodes, int(offset))
}

// SpreadsLoad implements LoadSpreader.
func (p *RoundRobinPolicy) SpreadsLoad() bool { return true }

var _ ChildPolicy = (*RoundRobinPolicy)(nil)
