package routing

import (
	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

// TokenAwarePolicy contacts the replicas of the statement token first, in the
// order the keyspace replication strategy assigns them, then every other node
// of the snapshot. Without a token it falls back to the snapshot order.
//
// The optional child re-orders the replicas and the remaining nodes separately,
// so a non replica is never tried before a replica. The child is bypassed for
// confirmed LWT statements when it spreads load.
type TokenAwarePolicy struct {
	child ChildPolicy
}

// NewTokenAwarePolicy creates a TokenAwarePolicy, child may be nil.
func NewTokenAwarePolicy(child ChildPolicy) *TokenAwarePolicy {
	return &TokenAwarePolicy{child: child}
}

// Name implements Policy.
func (p *TokenAwarePolicy) Name() string {
	if p.child == nil {
		return "TokenAwarePolicy"
	}
	return "TokenAwarePolicy{child=" + p.child.Name() + "}"
}

// Plan implements Policy.
func (p *TokenAwarePolicy) Plan(stmt Statement, snap *cluster.Snapshot) Plan {
	if snap == nil || snap.Len() == 0 {
		return EmptyPlan()
	}
	useChild := p.child != nil && !(stmt.IsConfirmedLWT && spreadsLoad(p.child))
	if !stmt.HasToken {
		if useChild {
			return p.child.ApplyChildPolicy(snap.Nodes())
		}
		return NewSlicePlan(snap.Nodes())
	}

	replicas := snap.Replicas(stmt.Keyspace, stmt.Token)
	if !useChild {
		return Concat(NewSlicePlan(replicas), Defer(func() Plan {
			return NewSlicePlan(without(snap.Nodes(), replicas))
		}))
	}
	// children may be registered by users, the segments are only disjoint if they behave
	return Dedup(Concat(p.child.ApplyChildPolicy(replicas), Defer(func() Plan {
		return p.child.ApplyChildPolicy(without(snap.Nodes(), replicas))
	})))
}

// without returns the nodes of all that are not in skip, keeping their order.
func without(all, skip []*cluster.Node) []*cluster.Node {
	if len(skip) == 0 {
		return all
	}
	excluded := make(map[*cluster.Node]struct{}, len(skip))
	for _, n := range skip {
		excluded[n] = struct{}{}
	}
	out := make([]*cluster.Node, 0, max(len(all)-len(skip), 0))
	for _, n := range all {
		if _, ok := excluded[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

var _ Policy = (*TokenAwarePolicy)(nil)
