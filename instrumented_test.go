package routing

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

func TestInstrumentedPolicyCountsPlans(t *testing.T) {
	m := NewMetrics("test")
	p := Instrument(NewTokenAwarePolicy(nil), m)
	name := "TokenAwarePolicy"
	assert.Equal(t, name, p.Name())

	snap := threeNodeRing(t)
	assert.Equal(t, []string{"B", "C", "A"}, drain(p.Plan(Statement{}.WithToken(50), snap)))
	assert.Equal(t, []string{"B", "C", "A"}, drain(p.Plan(Statement{}.WithToken(50).WithLWT(true), snap)))
	assert.Empty(t, drain(p.Plan(Statement{}, cluster.Empty())))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Plans.WithLabelValues(name, "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Plans.WithLabelValues(name, "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmptyPlans.WithLabelValues(name)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PlanningMicros))

	_, ok := p.(ChildPolicy)
	assert.False(t, ok)
	assert.Equal(t, name, p.(*InstrumentedPolicy).Unwrap().Name())
}

func TestInstrumentedPolicyCountsEmptyOnlyOnFirstNext(t *testing.T) {
	m := NewMetrics("test")
	p := Instrument(NewHealthyFirstPolicy(), m)

	plan := p.Plan(Statement{}, cluster.Empty())
	for i := 0; i < 3; i++ {
		_, ok := plan.Next()
		assert.False(t, ok)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmptyPlans.WithLabelValues("HealthyFirstPolicy")))
}

func TestInstrumentedChildPolicy(t *testing.T) {
	m := NewMetrics("test")
	p := Instrument(NewRoundRobinPolicy(), m)

	child, ok := p.(ChildPolicy)
	require.True(t, ok)
	assert.True(t, spreadsLoad(child))

	nodes := threeNodeRing(t).Nodes()
	assert.Equal(t, []string{"A", "B", "C"}, drain(child.ApplyChildPolicy(nodes)))
	assert.Empty(t, drain(child.ApplyChildPolicy(nil)))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Plans.WithLabelValues("RoundRobinPolicy", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmptyPlans.WithLabelValues("RoundRobinPolicy")))

	chained := Chain(NewTokenAwarePolicy(nil), child)
	lwt := Statement{}.WithToken(50).WithLWT(true)
	assert.Equal(t, []string{"B", "C", "A"}, drain(chained.Plan(lwt, threeNodeRing(t))))
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("scylla")
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg), "collectors can be registered once")

	Instrument(NewRoundRobinPolicy(), m).Plan(Statement{}, cluster.Empty())
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "scylla_routing_plans_total")
	assert.Contains(t, names, "scylla_routing_planning_duration_micros")
}
