package cluster

import (
	"sort"

	"github.com/scylladb/scylla-client-golang/routing/token"
)

type ringEntry struct {
	token token.Token
	node  *Node
}

// Snapshot is a point in time, immutable view of the cluster. It is safe for
// concurrent use and may be shared by any number of in-flight plans.
type Snapshot struct {
	nodes       []*Node
	byID        map[string]*Node
	ring        []ringEntry
	keyspaces   map[string]ReplicationStrategy
	partitioner token.Partitioner
	dcNodes     map[string]int
	dcRacks     map[string]int
	owners      int
}

// Nodes returns every known node in the order they were added to the snapshot.
// The returned slice is shared and must not be modified.
func (s *Snapshot) Nodes() []*Node {
	return s.nodes
}

// Len returns the number of known nodes.
func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// Node looks a node up by host ID.
func (s *Snapshot) Node(hostID string) (*Node, bool) {
	n, ok := s.byID[hostID]
	return n, ok
}

// Contains reports whether n is a member of this snapshot.
func (s *Snapshot) Contains(n *Node) bool {
	if n == nil {
		return false
	}
	return s.byID[n.HostID] == n
}

// Partitioner returns the partitioner of the cluster.
func (s *Snapshot) Partitioner() token.Partitioner {
	return s.partitioner
}

// Replication resolves the replication strategy of a keyspace.
func (s *Snapshot) Replication(keyspace string) (ReplicationStrategy, bool) {
	st, ok := s.keyspaces[keyspace]
	return st, ok
}

// Datacenters returns the sorted names of datacenters that own tokens.
func (s *Snapshot) Datacenters() []string {
	out := make([]string, 0, len(s.dcNodes))
	for dc := range s.dcNodes {
		out = append(out, dc)
	}
	sort.Strings(out)
	return out
}

// ReplicasFor returns the distinct owners of the ring in ring order, starting with
// the primary owner of t. Without replication parameters every owner is a
// candidate, closer ones first.
func (s *Snapshot) ReplicasFor(t token.Token) []*Node {
	out := make([]*Node, 0, len(s.nodes))
	s.walk(t, func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Replicas returns the replicas of t for keyspace, in the order the replication
// strategy assigns them. An unknown or empty keyspace falls back to ReplicasFor.
func (s *Snapshot) Replicas(keyspace string, t token.Token) []*Node {
	st, ok := s.keyspaces[keyspace]
	if keyspace == "" || !ok {
		return s.ReplicasFor(t)
	}
	return st.replicas(s, func(visit func(*Node) bool) { s.walk(t, visit) })
}

// PrimaryReplica returns the owner of the first ring position at or after t.
func (s *Snapshot) PrimaryReplica(t token.Token) (*Node, bool) {
	if len(s.ring) == 0 {
		return nil, false
	}
	return s.ring[s.search(t)].node, true
}

func (s *Snapshot) search(t token.Token) int {
	i := sort.Search(len(s.ring), func(i int) bool { return s.ring[i].token >= t })
	if i == len(s.ring) {
		i = 0
	}
	return i
}

// walk visits distinct ring owners in ring order starting at the primary owner of t,
// until visit returns false or the ring is exhausted.
func (s *Snapshot) walk(t token.Token, visit func(*Node) bool) {
	if len(s.ring) == 0 {
		return
	}
	start := s.search(t)
	seen := make(map[*Node]struct{}, len(s.nodes))
	for i := 0; i < len(s.ring); i++ {
		n := s.ring[(start+i)%len(s.ring)].node
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		if !visit(n) || len(seen) == s.owners {
			return
		}
	}
}
