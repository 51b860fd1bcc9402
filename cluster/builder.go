package cluster

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/scylladb/scylla-client-golang/routing/token"
)

// Builder assembles a Snapshot. It is not safe for concurrent use.
type Builder struct {
	nodes       []*Node
	byID        map[string]*Node
	keyspaces   map[string]ReplicationStrategy
	partitioner token.Partitioner
	errs        error
}

// NewBuilder creates a builder using the Murmur3 partitioner.
func NewBuilder() *Builder {
	return &Builder{
		byID:        make(map[string]*Node),
		keyspaces:   make(map[string]ReplicationStrategy),
		partitioner: token.Murmur3Partitioner{},
	}
}

// WithPartitioner overrides the partitioner.
func (b *Builder) WithPartitioner(p token.Partitioner) *Builder {
	b.partitioner = p
	return b
}

// AddNode adds nodes. Nodes are kept in the order they are added.
func (b *Builder) AddNode(nodes ...*Node) *Builder {
	for _, n := range nodes {
		switch {
		case n == nil:
			b.errs = multierr.Append(b.errs, errors.New("nil node"))
		case n.HostID == "":
			b.errs = multierr.Append(b.errs, fmt.Errorf("node %s has no host id", n.Address))
		case b.byID[n.HostID] != nil:
			b.errs = multierr.Append(b.errs, fmt.Errorf("duplicate host id %s", n.HostID))
		default:
			b.byID[n.HostID] = n
			b.nodes = append(b.nodes, n)
		}
	}
	return b
}

// SetKeyspace registers the replication strategy of a keyspace.
func (b *Builder) SetKeyspace(keyspace string, st ReplicationStrategy) *Builder {
	if st == nil {
		b.errs = multierr.Append(b.errs, fmt.Errorf("keyspace %s: nil replication strategy", keyspace))
		return b
	}
	b.keyspaces[keyspace] = st
	return b
}

// SetKeyspaceReplication registers a keyspace from its replication options map.
func (b *Builder) SetKeyspaceReplication(keyspace string, options map[string]string) *Builder {
	st, err := ParseReplication(options)
	if err != nil {
		b.errs = multierr.Append(b.errs, fmt.Errorf("keyspace %s: %w", keyspace, err))
		return b
	}
	return b.SetKeyspace(keyspace, st)
}

// Build returns the snapshot, or every problem found while building it.
func (b *Builder) Build() (*Snapshot, error) {
	if b.errs != nil {
		return nil, b.errs
	}

	s := &Snapshot{
		nodes:       append([]*Node(nil), b.nodes...),
		byID:        make(map[string]*Node, len(b.byID)),
		keyspaces:   make(map[string]ReplicationStrategy, len(b.keyspaces)),
		partitioner: b.partitioner,
		dcNodes:     make(map[string]int),
		dcRacks:     make(map[string]int),
	}
	for id, n := range b.byID {
		s.byID[id] = n
	}
	for ks, st := range b.keyspaces {
		s.keyspaces[ks] = st
	}

	racks := make(map[string]map[string]struct{})
	for _, n := range s.nodes {
		if len(n.Tokens) == 0 {
			continue
		}
		s.owners++
		s.dcNodes[n.Datacenter]++
		if racks[n.Datacenter] == nil {
			racks[n.Datacenter] = make(map[string]struct{})
		}
		racks[n.Datacenter][n.Rack] = struct{}{}
		for _, t := range n.Tokens {
			s.ring = append(s.ring, ringEntry{token: t, node: n})
		}
	}
	for dc, r := range racks {
		s.dcRacks[dc] = len(r)
	}
	sort.SliceStable(s.ring, func(i, j int) bool { return s.ring[i].token < s.ring[j].token })
	return s, nil
}

// MustBuild is like Build but panics on error. Meant for tests and static setups.
func (b *Builder) MustBuild() *Snapshot {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Empty returns a snapshot without nodes.
func Empty() *Snapshot {
	return NewBuilder().MustBuild()
}
