package routing

import (
	"math/rand"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

// Plan is the contact order of one statement attempt. Next returns the next
// node, or false once the plan is exhausted. Exhaustion is final and is not an
// error: an empty plan means no node is routable right now.
//
// A plan never yields the same node twice and only yields nodes of the snapshot
// it was planned against. Plans are lazy, they are not restartable and are
// consumed by a single goroutine.
type Plan interface {
	Next() (*cluster.Node, bool)
}

// FuncPlan adapts a function to Plan.
type FuncPlan func() (*cluster.Node, bool)

// Next implements Plan.
func (f FuncPlan) Next() (*cluster.Node, bool) { return f() }

type emptyPlan struct{}

func (emptyPlan) Next() (*cluster.Node, bool) { return nil, false }

// EmptyPlan returns an exhausted plan.
func EmptyPlan() Plan { return emptyPlan{} }

type slicePlan struct {
	nodes []*cluster.Node
	pos   int
}

// NewSlicePlan yields nodes in order. The slice is not copied nor modified.
func NewSlicePlan(nodes []*cluster.Node) Plan {
	if len(nodes) == 0 {
		return EmptyPlan()
	}
	return &slicePlan{nodes: nodes}
}

func (p *slicePlan) Next() (*cluster.Node, bool) {
	if p.pos >= len(p.nodes) {
		return nil, false
	}
	n := p.nodes[p.pos]
	p.pos++
	return n, true
}

type rotatedPlan struct {
	nodes []*cluster.Node
	start int
	i     int
}

// NewRotatedPlan yields nodes[offset:] followed by nodes[:offset]. The offset is
// taken modulo len(nodes). The slice is not copied nor modified.
func NewRotatedPlan(nodes []*cluster.Node, offset int) Plan {
	if len(nodes) == 0 {
		return EmptyPlan()
	}
	start := offset % len(nodes)
	if start < 0 {
		start += len(nodes)
	}
	return &rotatedPlan{nodes: nodes, start: start}
}

func (p *rotatedPlan) Next() (*cluster.Node, bool) {
	if p.i >= len(p.nodes) {
		return nil, false
	}
	n := p.nodes[(p.start+p.i)%len(p.nodes)]
	p.i++
	return n, true
}

type shufflePlan struct {
	src  []*cluster.Node
	left []*cluster.Node
	rnd  *rand.Rand
}

// NewShufflePlan yields nodes in random order, picking a random remaining node on
// every call. nodes is copied on the first call to Next and never modified.
func NewShufflePlan(nodes []*cluster.Node, rnd *rand.Rand) Plan {
	if len(nodes) == 0 {
		return EmptyPlan()
	}
	return &shufflePlan{src: nodes, rnd: rnd}
}

func (p *shufflePlan) Next() (*cluster.Node, bool) {
	if p.src != nil {
		p.left = append(make([]*cluster.Node, 0, len(p.src)), p.src...)
		p.src = nil
	}
	if len(p.left) == 0 {
		return nil, false
	}
	idx := p.rnd.Intn(len(p.left))
	n := p.left[idx]
	last := len(p.left) - 1
	p.left[idx] = p.left[last]
	p.left[last] = nil
	p.left = p.left[:last]
	return n, true
}

type concatPlan struct {
	plans []Plan
}

// Concat yields every node of the first plan, then of the second, and so on.
// Nodes present in several plans are yielded several times, wrap it in Dedup
// when the plans may overlap.
func Concat(plans ...Plan) Plan {
	return &concatPlan{plans: plans}
}

func (p *concatPlan) Next() (*cluster.Node, bool) {
	for len(p.plans) > 0 {
		if n, ok := p.plans[0].Next(); ok {
			return n, true
		}
		p.plans[0] = nil
		p.plans = p.plans[1:]
	}
	return nil, false
}

type dedupPlan struct {
	plan Plan
	seen map[*cluster.Node]struct{}
}

// Dedup skips nodes already yielded by the plan.
func Dedup(p Plan) Plan {
	return &dedupPlan{plan: p, seen: make(map[*cluster.Node]struct{})}
}

func (p *dedupPlan) Next() (*cluster.Node, bool) {
	for {
		n, ok := p.plan.Next()
		if !ok {
			return nil, false
		}
		if _, dup := p.seen[n]; dup {
			continue
		}
		p.seen[n] = struct{}{}
		return n, true
	}
}

type deferredPlan struct {
	build func() Plan
	plan  Plan
}

// Defer builds the plan on the first call to Next. It keeps the cost of
// computing fallback nodes off the common path where the first node answers.
func Defer(build func() Plan) Plan {
	return &deferredPlan{build: build}
}

func (p *deferredPlan) Next() (*cluster.Node, bool) {
	if p.plan == nil {
		p.plan = p.build()
		p.build = nil
		if p.plan == nil {
			p.plan = EmptyPlan()
		}
	}
	return p.plan.Next()
}

// Materialize drains p into a new slice. It is the composition boundary where a
// child policy needs the whole ordering of its parent.
func Materialize(p Plan) []*cluster.Node {
	var out []*cluster.Node
	for n, ok := p.Next(); ok; n, ok = p.Next() {
		out = append(out, n)
	}
	return out
}
