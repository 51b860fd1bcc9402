package routing

import (
	"math/rand"
	"time"

	"go.uber.org/atomic"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
	"github.com/scylladb/scylla-client-golang/routing/rt"
)

// DefaultPolicyConfig tunes DefaultPolicy.
type DefaultPolicyConfig struct {
	// PreferredDatacenter moves nodes of this datacenter in front of the others
	PreferredDatacenter string
	// PreferredRack moves nodes of this rack of PreferredDatacenter in front of the rest of the datacenter
	PreferredRack string
	// TokenAware makes replicas of the statement token come before other nodes
	TokenAware bool
	// ShuffleReplicas picks a random node among equally suitable ones instead of rotating them
	ShuffleReplicas bool
	// Seed of the shuffling, zero means the clock
	Seed int64
}

// NewDefaultPolicyConfig returns a token aware configuration without locality preference.
func NewDefaultPolicyConfig() DefaultPolicyConfig {
	return DefaultPolicyConfig{TokenAware: true}
}

// Scope returns the locality scope chain described by the configuration.
func (c DefaultPolicyConfig) Scope() rt.Scope {
	switch {
	case c.PreferredDatacenter != "" && c.PreferredRack != "":
		return rt.NewRackScope(c.PreferredDatacenter, c.PreferredRack,
			rt.NewDCScope(c.PreferredDatacenter, rt.NewClusterScope()))
	case c.PreferredDatacenter != "":
		return rt.NewDCScope(c.PreferredDatacenter, rt.NewClusterScope())
	default:
		return rt.NewClusterScope()
	}
}

// DefaultPolicy is the token aware policy used when nothing else is configured.
//
// Nodes are ranked by health first (up, quarantined, down) and then by locality
// (preferred rack, preferred datacenter, the rest). Replicas of the statement
// token come before every other node. Inside a group of equally ranked nodes
// the starting node is rotated on every plan, or picked at random with
// ShuffleReplicas.
//
// A confirmed LWT statement with a token gets the replicas in ring order,
// ranked by locality only, followed by the other nodes in the same manner.
// That ordering only depends on the snapshot and the token.
type DefaultPolicy struct {
	cfg    DefaultPolicyConfig
	scopes []rt.Scope
	next   *atomic.Uint64
	seed   *atomic.Int64
}

// NewDefaultPolicy creates a DefaultPolicy.
func NewDefaultPolicy(cfg DefaultPolicyConfig) *DefaultPolicy {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DefaultPolicy{
		cfg:    cfg,
		scopes: rt.Chain(cfg.Scope()),
		next:   atomic.NewUint64(0),
		seed:   atomic.NewInt64(seed),
	}
}

// Name implements Policy.
func (p *DefaultPolicy) Name() string {
	return "DefaultPolicy{" + p.scopes[0].String() + "}"
}

// Plan implements Policy.
func (p *DefaultPolicy) Plan(stmt Statement, snap *cluster.Snapshot) Plan {
	if snap == nil || snap.Len() == 0 {
		return EmptyPlan()
	}
	lwt := stmt.IsConfirmedLWT && stmt.HasToken

	rank, order := p.locality, NewSlicePlan
	if !lwt {
		rank, order = p.rank, p.spread()
	}
	levels := p.levels(lwt)

	if !p.cfg.TokenAware || !stmt.HasToken {
		return groupedPlan(snap.Nodes(), levels, rank, order)
	}
	replicas := snap.Replicas(stmt.Keyspace, stmt.Token)
	rest := Defer(func() Plan {
		return groupedPlan(without(snap.Nodes(), replicas), levels, rank, order)
	})
	return Concat(groupedPlan(replicas, levels, rank, order), rest)
}

func (p *DefaultPolicy) levels(lwt bool) int {
	if lwt {
		return len(p.scopes) + 1
	}
	return 3 * (len(p.scopes) + 1)
}

func (p *DefaultPolicy) locality(n *cluster.Node) int {
	for i, s := range p.scopes {
		if s.Matches(n) {
			return i
		}
	}
	return len(p.scopes)
}

func (p *DefaultPolicy) rank(n *cluster.Node) int {
	return healthRank(n)*(len(p.scopes)+1) + p.locality(n)
}

// spread returns how a group of equally ranked nodes of one plan is ordered.
func (p *DefaultPolicy) spread() func([]*cluster.Node) Plan {
	if p.cfg.ShuffleReplicas {
		rnd := rand.New(rand.NewSource(p.seed.Inc()))
		return func(nodes []*cluster.Node) Plan { return NewShufflePlan(nodes, rnd) }
	}
	offset := p.next.Inc() - 1
	return func(nodes []*cluster.Node) Plan {
		if len(nodes) == 0 {
			return EmptyPlan()
		}
		return NewRotatedPlan(nodes, int(offset%uint64(len(nodes))))
	}
}

// groupedPlan splits nodes into rank groups, keeping their order, and yields the
// groups lowest rank first, each one ordered by order.
func groupedPlan(nodes []*cluster.Node, levels int, rank func(*cluster.Node) int, order func([]*cluster.Node) Plan) Plan {
	if len(nodes) == 0 {
		return EmptyPlan()
	}
	groups := make([][]*cluster.Node, levels)
	for _, n := range nodes {
		r := min(max(rank(n), 0), levels-1)
		groups[r] = append(groups[r], n)
	}
	plans := make([]Plan, 0, levels)
	for _, g := range groups {
		if len(g) > 0 {
			plans = append(plans, order(g))
		}
	}
	return Concat(plans...)
}

var _ Policy = (*DefaultPolicy)(nil)
