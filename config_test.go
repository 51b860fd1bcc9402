package routing

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
	"github.com/scylladb/scylla-client-golang/routing/errs"
	"github.com/scylladb/scylla-client-golang/routing/logxzap"
)

const chainYAML = `
root:
  name: token-aware
  child:
    name: round-robin
children:
  - name: dc-aware
    datacenter: dc2
  - name: healthy-first
`

func TestParseAndBuildChain(t *testing.T) {
	spec, err := ParseChainSpec([]byte(chainYAML))
	require.NoError(t, err)
	assert.Equal(t, PolicyTokenAware, spec.Root.Name)
	require.NotNil(t, spec.Root.Child)
	assert.Equal(t, PolicyRoundRobin, spec.Root.Child.Name)
	require.Len(t, spec.Children, 2)
	assert.Equal(t, "dc2", spec.Children[0].Datacenter)

	p, err := NewRegistry().BuildChain(spec)
	require.NoError(t, err)
	assert.Equal(t,
		"TokenAwarePolicy{child=RoundRobinPolicy}->DCAwarePolicy{Datacenter(dc=dc2)}->HealthyFirstPolicy",
		p.Name())

	snap := twoDCRing(t)
	stmt := Statement{Keyspace: "ks"}.WithToken(150).WithLWT(true)
	assert.Equal(t, []string{"C", "D", "B", "A", "E"}, drain(p.Plan(stmt, snap)))
}

func TestParseChainSpecErrors(t *testing.T) {
	_, err := ParseChainSpec(nil)
	assert.ErrorIs(t, err, errs.ErrEmptyChain)

	_, err = ParseChainSpec([]byte("root:\n  name: default\n  colour: blue\n"))
	assert.Error(t, err)

	_, err = ParseChainSpec([]byte("root: ["))
	assert.Error(t, err)
}

func TestBuildChainReportsEveryProblem(t *testing.T) {
	r := NewRegistry()

	_, err := r.BuildChain(ChainSpec{})
	assert.ErrorIs(t, err, errs.ErrEmptyChain)

	_, err = r.BuildChain(ChainSpec{
		Root: PolicySpec{Name: "nearest"},
		Children: []PolicySpec{
			{Name: PolicyRoundRobin},
			{Name: PolicyTokenAware},
			{Name: PolicyDCAware},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrUnknownPolicy)
	assert.ErrorIs(t, err, errs.ErrNotComposable)
	assert.Len(t, multierr.Errors(err), 3)

	_, err = r.Build(PolicySpec{Name: PolicyTokenAware, Child: &PolicySpec{Name: PolicyDefault}})
	assert.ErrorIs(t, err, errs.ErrNotComposable)

	_, err = r.Build(PolicySpec{Name: PolicyShuffle, Window: -1})
	assert.Error(t, err)
}

func TestRegistryCustomPolicy(t *testing.T) {
	r := NewRegistry()
	r.Register("reverse", func(PolicySpec, *Registry) (Policy, error) {
		return reversePolicy{}, nil
	})
	assert.Equal(t, []string{
		PolicyDCAware, PolicyDefault, PolicyHealthyFirst, "reverse", PolicyRoundRobin, PolicyShuffle, PolicyTokenAware,
	}, r.Names())

	p, err := NewPolicy(
		WithRegistry(r),
		WithChain(ChainSpec{Root: PolicySpec{Name: PolicyTokenAware}, Children: []PolicySpec{{Name: "reverse"}}}),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, drain(p.Plan(Statement{}.WithToken(50), threeNodeRing(t))))
}

func TestNewPolicyDefaults(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	p, err := NewPolicy(WithLogger(logxzap.New(zap.New(core))))
	require.NoError(t, err)
	dp, ok := p.(*DefaultPolicy)
	require.True(t, ok)
	assert.True(t, dp.cfg.TokenAware)
	assert.Equal(t, "DefaultPolicy{Cluster()}", p.Name())

	entries := logs.FilterMessage("routing policy configured").AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "DefaultPolicy{Cluster()}", entries[0].ContextMap()["policy"])
}

func TestNewPolicyOptions(t *testing.T) {
	m := NewMetrics("test")
	p, err := NewPolicy(
		WithPreferredRack("dc1", "r2"),
		WithShuffleReplicas(false),
		WithTokenAware(true),
		WithSeed(1),
		WithMetrics(m),
	)
	require.NoError(t, err)
	assert.Equal(t, "DefaultPolicy{Rack(dc=dc1, rack=r2)}", p.Name())

	ip, ok := p.(*InstrumentedPolicy)
	require.True(t, ok)
	dp, ok := ip.Unwrap().(*DefaultPolicy)
	require.True(t, ok)
	assert.Equal(t, DefaultPolicyConfig{PreferredDatacenter: "dc1", PreferredRack: "r2", TokenAware: true, Seed: 1}, dp.cfg)

	p.Plan(Statement{}, cluster.Empty())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Plans.WithLabelValues(p.Name(), "false")))
}

func TestNewPolicyValidation(t *testing.T) {
	_, err := NewPolicy(func(c *Config) { c.DefaultPolicy.PreferredRack = "r1" })
	require.Error(t, err)

	_, err = NewPolicy(WithChain(ChainSpec{}))
	assert.ErrorIs(t, err, errs.ErrEmptyChain)

	_, err = NewPolicy(WithChain(ChainSpec{Root: PolicySpec{Name: "nearest"}}))
	assert.ErrorIs(t, err, errs.ErrUnknownPolicy)

	assert.Panics(t, func() { WithLogger(nil) })

	cfg := NewDefaultConfig()
	cfg.Logger = nil
	cfg.DefaultPolicy.PreferredRack = "r1"
	assert.Len(t, multierr.Errors(cfg.Validate()), 2)
	assert.False(t, errors.Is(NewDefaultConfig().Validate(), errs.ErrEmptyChain))
}
