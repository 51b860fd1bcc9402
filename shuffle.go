package routing

import (
	"math/rand"
	"time"

	"go.uber.org/atomic"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

// ShufflePolicy randomizes the first Window nodes of the parent plan and keeps
// the remaining ones in order. A zero window shuffles everything.
type ShufflePolicy struct {
	window int
	seed   *atomic.Int64
}

// NewShufflePolicy creates a ShufflePolicy seeded from the clock.
func NewShufflePolicy(window int) *ShufflePolicy {
	return NewShufflePolicyWithSeed(window, time.Now().UnixNano())
}

// NewShufflePolicyWithSeed creates a ShufflePolicy whose sequence of plans is
// reproducible for a given seed.
func NewShufflePolicyWithSeed(window int, seed int64) *ShufflePolicy {
	return &ShufflePolicy{window: max(window, 0), seed: atomic.NewInt64(seed)}
}

// Name implements Policy.
func (p *ShufflePolicy) Name() string { return "ShufflePolicy" }

// Plan implements Policy.
func (p *ShufflePolicy) Plan(stmt Statement, snap *cluster.Snapshot) Plan {
	if snap == nil {
		return EmptyPlan()
	}
	if stmt.IsConfirmedLWT {
		return NewSlicePlan(snap.Nodes())
	}
	return p.ApplyChildPolicy(snap.Nodes())
}

// ApplyChildPolicy implements ChildPolicy.
func (p *ShufflePolicy) ApplyChildPolicy(nodes []*cluster.Node) Plan {
	if len(nodes) == 0 {
		return EmptyPlan()
	}
	// every plan gets its own generator, *rand.Rand is not safe for concurrent use
	rnd := rand.New(rand.NewSource(p.seed.Inc()))
	if p.window == 0 || p.window >= len(nodes) {
		return NewShufflePlan(nodes, rnd)
	}
	return Concat(NewShufflePlan(nodes[:p.window], rnd), NewSlicePlan(nodes[p.window:]))
}

// SpreadsLoad implements LoadSpreader.
func (p *ShufflePolicy) SpreadsLoad() bool { return true }

var _ ChildPolicy = (*ShufflePolicy)(nil)
