package routing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

func hostIDs(nodes []*cluster.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.HostID)
	}
	return out
}

func drain(p Plan) []string {
	return hostIDs(Materialize(p))
}

// threeNodeRing has replicas [B, C, A] for token 50.
func threeNodeRing(t *testing.T) *cluster.Snapshot {
	t.Helper()
	s, err := cluster.NewBuilder().AddNode(
		cluster.NewNode("A", "10.0.0.1:9042", "dc1", "r1", 300),
		cluster.NewNode("B", "10.0.0.2:9042", "dc1", "r1", 100),
		cluster.NewNode("C", "10.0.0.3:9042", "dc1", "r1", 200),
	).Build()
	require.NoError(t, err)
	return s
}

// twoDCRing spreads five nodes over two datacenters. Keyspace "ks" has RF=2,
// so token 150 is owned by B then C.
func twoDCRing(t *testing.T) *cluster.Snapshot {
	t.Helper()
	s, err := cluster.NewBuilder().AddNode(
		cluster.NewNode("A", "10.0.0.1:9042", "dc1", "r1", 100),
		cluster.NewNode("B", "10.0.0.2:9042", "dc1", "r2", 200),
		cluster.NewNode("C", "10.0.1.1:9042", "dc2", "r1", 300),
		cluster.NewNode("D", "10.0.1.2:9042", "dc2", "r1", 400),
		cluster.NewNode("E", "10.0.0.3:9042", "dc1", "r1", 500),
	).SetKeyspace("ks", cluster.SimpleStrategy{RF: 2}).Build()
	require.NoError(t, err)
	return s
}

func node(t *testing.T, s *cluster.Snapshot, id string) *cluster.Node {
	t.Helper()
	n, ok := s.Node(id)
	require.True(t, ok, "node %s", id)
	return n
}

// reversePolicy is a deterministic child policy used to observe composition.
type reversePolicy struct{}

func (reversePolicy) Name() string { return "reverse" }

func (r reversePolicy) Plan(_ Statement, snap *cluster.Snapshot) Plan {
	return r.ApplyChildPolicy(snap.Nodes())
}

func (reversePolicy) ApplyChildPolicy(nodes []*cluster.Node) Plan {
	out := make([]*cluster.Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return NewSlicePlan(out)
}

// repeatPolicy yields its input twice, like a misbehaving custom child policy.
type repeatPolicy struct{}

func (repeatPolicy) Name() string { return "repeat" }

func (r repeatPolicy) Plan(_ Statement, snap *cluster.Snapshot) Plan {
	return r.ApplyChildPolicy(snap.Nodes())
}

func (repeatPolicy) ApplyChildPolicy(nodes []*cluster.Node) Plan {
	return Concat(NewSlicePlan(nodes), NewSlicePlan(nodes))
}
