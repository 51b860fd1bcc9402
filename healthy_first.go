package routing

import (
	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

// HealthyFirstPolicy tries up nodes first, then quarantined nodes, then down
// nodes, keeping the parent order inside each group. Unhealthy nodes are kept
// at the end rather than dropped: they may have recovered since the health
// state was last updated.
type HealthyFirstPolicy struct{}

// NewHealthyFirstPolicy creates a HealthyFirstPolicy.
func NewHealthyFirstPolicy() *HealthyFirstPolicy { return &HealthyFirstPolicy{} }

// Name implements Policy.
func (*HealthyFirstPolicy) Name() string { return "HealthyFirstPolicy" }

// Plan implements Policy.
func (p *HealthyFirstPolicy) Plan(_ Statement, snap *cluster.Snapshot) Plan {
	if snap == nil {
		return EmptyPlan()
	}
	return p.ApplyChildPolicy(snap.Nodes())
}

// ApplyChildPolicy implements ChildPolicy.
func (*HealthyFirstPolicy) ApplyChildPolicy(nodes []*cluster.Node) Plan {
	return newRankedPlan(nodes, 3, healthRank)
}

var _ ChildPolicy = (*HealthyFirstPolicy)(nil)
