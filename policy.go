package routing

import (
	"strings"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

// Policy decides which nodes to contact for each statement, and in which order.
//
// Plan must not fail: when no node is usable it returns an empty plan. It must
// be safe for concurrent use, must not modify the snapshot or its nodes and
// must not retain the snapshot once the returned plan is dropped.
//
// For a statement with IsConfirmedLWT and a token, a policy that honors the flag
// returns the same ordering for the same snapshot on every call.
type Policy interface {
	Plan(stmt Statement, snap *cluster.Snapshot) Plan
	// Name is used for diagnostics only.
	Name() string
}

// ChildPolicy is a Policy that can also re-order a plan made by a parent policy.
// The parent plan is handed over materialized, the returned plan is lazy again.
// An empty input yields an empty plan.
type ChildPolicy interface {
	Policy
	ApplyChildPolicy(nodes []*cluster.Node) Plan
}

// LoadSpreader is implemented by child policies whose ordering changes from call
// to call to spread load. Chains skip such stages for confirmed LWT statements.
type LoadSpreader interface {
	SpreadsLoad() bool
}

func spreadsLoad(p Policy) bool {
	s, ok := p.(LoadSpreader)
	return ok && s.SpreadsLoad()
}

// Chain composes root with children applied in order: every child receives the
// materialized plan of the previous stage. Without children the root plan is
// returned as is. When root is itself a ChildPolicy the chain is one too.
func Chain(root Policy, children ...ChildPolicy) Policy {
	if len(children) == 0 {
		return root
	}
	names := make([]string, 0, len(children)+1)
	names = append(names, root.Name())
	for _, c := range children {
		names = append(names, c.Name())
	}
	c := &chainPolicy{
		root:     root,
		children: append([]ChildPolicy(nil), children...),
		name:     strings.Join(names, "->"),
	}
	if rootChild, ok := root.(ChildPolicy); ok {
		return &childChainPolicy{chainPolicy: c, rootChild: rootChild}
	}
	return c
}

type chainPolicy struct {
	root     Policy
	children []ChildPolicy
	name     string
}

func (c *chainPolicy) Name() string { return c.name }

func (c *chainPolicy) Plan(stmt Statement, snap *cluster.Snapshot) Plan {
	return c.applyChildren(c.root.Plan(stmt, snap), stmt.IsConfirmedLWT)
}

func (c *chainPolicy) applyChildren(plan Plan, lwt bool) Plan {
	for _, child := range c.children {
		if lwt && spreadsLoad(child) {
			continue
		}
		nodes := Materialize(plan)
		if len(nodes) == 0 {
			return EmptyPlan()
		}
		plan = child.ApplyChildPolicy(nodes)
	}
	return plan
}

type childChainPolicy struct {
	*chainPolicy
	rootChild ChildPolicy
}

func (c *childChainPolicy) ApplyChildPolicy(nodes []*cluster.Node) Plan {
	if len(nodes) == 0 {
		return EmptyPlan()
	}
	return c.applyChildren(c.rootChild.ApplyChildPolicy(nodes), false)
}

// SpreadsLoad reports whether any stage of the chain spreads load.
func (c *childChainPolicy) SpreadsLoad() bool {
	if spreadsLoad(c.rootChild) {
		return true
	}
	for _, child := range c.children {
		if spreadsLoad(child) {
			return true
		}
	}
	return false
}

// rankedPlan yields nodes grouped by rank, lowest first, keeping the input order
// inside a group. Ranks are computed once on the first call to Next so that a
// node whose state flips mid iteration is still yielded exactly once.
type rankedPlan struct {
	nodes  []*cluster.Node
	rank   func(*cluster.Node) int
	levels int

	ranks []int
	level int
	pos   int
}

func newRankedPlan(nodes []*cluster.Node, levels int, rank func(*cluster.Node) int) Plan {
	if len(nodes) == 0 {
		return EmptyPlan()
	}
	return &rankedPlan{nodes: nodes, rank: rank, levels: levels}
}

func (p *rankedPlan) Next() (*cluster.Node, bool) {
	if p.ranks == nil {
		p.ranks = make([]int, len(p.nodes))
		for i, n := range p.nodes {
			p.ranks[i] = min(max(p.rank(n), 0), p.levels-1)
		}
	}
	for p.level < p.levels {
		for p.pos < len(p.nodes) {
			i := p.pos
			p.pos++
			if p.ranks[i] == p.level {
				return p.nodes[i], true
			}
		}
		p.level++
		p.pos = 0
	}
	return nil, false
}

// healthRank orders up nodes first, then quarantined ones, then down ones.
func healthRank(n *cluster.Node) int {
	switch n.State() {
	case cluster.StateUp:
		return 0
	case cluster.StateQuarantined:
		return 1
	default:
		return 2
	}
}
