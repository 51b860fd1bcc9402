package routing

import (
	"github.com/scylladb/scylla-client-golang/routing/cluster"
	"github.com/scylladb/scylla-client-golang/routing/rt"
)

// DCAwarePolicy moves local nodes in front of remote ones. Locality follows a
// scope chain: nodes matching the scope come first, then those matching its
// fallback, and so on, then every other node. It is a stable partition, the
// parent order is kept inside every group.
type DCAwarePolicy struct {
	scopes []rt.Scope
	name   string
}

// NewDCAwarePolicy creates a DCAwarePolicy for scope and its fallbacks.
func NewDCAwarePolicy(scope rt.Scope) *DCAwarePolicy {
	name := "DCAwarePolicy"
	if scope != nil {
		name += "{" + scope.String() + "}"
	}
	return &DCAwarePolicy{scopes: rt.Chain(scope), name: name}
}

// Name implements Policy.
func (p *DCAwarePolicy) Name() string { return p.name }

// Plan implements Policy.
func (p *DCAwarePolicy) Plan(_ Statement, snap *cluster.Snapshot) Plan {
	if snap == nil {
		return EmptyPlan()
	}
	return p.ApplyChildPolicy(snap.Nodes())
}

// ApplyChildPolicy implements ChildPolicy.
func (p *DCAwarePolicy) ApplyChildPolicy(nodes []*cluster.Node) Plan {
	if len(p.scopes) == 0 {
		return NewSlicePlan(nodes)
	}
	return newRankedPlan(nodes, len(p.scopes)+1, p.locality)
}

func (p *DCAwarePolicy) locality(n *cluster.Node) int {
	for i, s := range p.scopes {
		if s.Matches(n) {
			return i
		}
	}
	return len(p.scopes)
}

var _ ChildPolicy = (*DCAwarePolicy)(nil)
