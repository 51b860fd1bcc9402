package cluster

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ReplicationStrategy decides which nodes hold the replicas of a token for a keyspace.
type ReplicationStrategy interface {
	// Class returns the short strategy class name, e.g. "SimpleStrategy".
	Class() string
	// replicas picks replicas from the ring walk that starts at the primary owner of a token.
	replicas(s *Snapshot, walk func(visit func(*Node) bool)) []*Node
}

// SimpleStrategy places RF replicas on the next distinct nodes of the ring.
type SimpleStrategy struct {
	RF int
}

// Class implements ReplicationStrategy.
func (SimpleStrategy) Class() string { return "SimpleStrategy" }

func (st SimpleStrategy) replicas(_ *Snapshot, walk func(func(*Node) bool)) []*Node {
	if st.RF <= 0 {
		return nil
	}
	out := make([]*Node, 0, st.RF)
	walk(func(n *Node) bool {
		out = append(out, n)
		return len(out) < st.RF
	})
	return out
}

// NetworkTopologyStrategy places a per datacenter number of replicas, spreading them
// over distinct racks while there are racks left in that datacenter.
type NetworkTopologyStrategy struct {
	DCs map[string]int
}

// Class implements ReplicationStrategy.
func (NetworkTopologyStrategy) Class() string { return "NetworkTopologyStrategy" }

func (st NetworkTopologyStrategy) replicas(s *Snapshot, walk func(func(*Node) bool)) []*Node {
	type dcState struct {
		want      int
		got       int
		racksLeft int
		racks     map[string]struct{}
		skipped   []*Node
	}

	dcs := make(map[string]*dcState, len(st.DCs))
	total := 0
	for dc, rf := range st.DCs {
		nodes := s.dcNodes[dc]
		if rf <= 0 || nodes == 0 {
			continue
		}
		rf = min(rf, nodes)
		dcs[dc] = &dcState{
			want:      rf,
			racksLeft: s.dcRacks[dc],
			racks:     make(map[string]struct{}),
		}
		total += rf
	}
	if total == 0 {
		return nil
	}

	out := make([]*Node, 0, total)
	walk(func(n *Node) bool {
		d := dcs[n.Datacenter]
		if d == nil || d.got >= d.want {
			return true
		}
		if _, used := d.racks[n.Rack]; used && d.racksLeft > 0 {
			d.skipped = append(d.skipped, n)
			return true
		}
		if _, used := d.racks[n.Rack]; !used {
			d.racks[n.Rack] = struct{}{}
			d.racksLeft--
		}
		out = append(out, n)
		d.got++
		if d.racksLeft == 0 {
			for len(d.skipped) > 0 && d.got < d.want {
				out = append(out, d.skipped[0])
				d.skipped = d.skipped[1:]
				d.got++
			}
		}
		return len(out) < total
	})
	return out
}

// LocalStrategy is used by node local system keyspaces, its data has no replicas to route to.
type LocalStrategy struct{}

// Class implements ReplicationStrategy.
func (LocalStrategy) Class() string { return "LocalStrategy" }

func (LocalStrategy) replicas(*Snapshot, func(func(*Node) bool)) []*Node { return nil }

// EverywhereStrategy replicates data on every node.
type EverywhereStrategy struct{}

// Class implements ReplicationStrategy.
func (EverywhereStrategy) Class() string { return "EverywhereStrategy" }

func (EverywhereStrategy) replicas(s *Snapshot, walk func(func(*Node) bool)) []*Node {
	out := make([]*Node, 0, len(s.nodes))
	walk(func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// ParseReplication builds a strategy out of a keyspace replication map as stored in
// system_schema.keyspaces, e.g. {"class": "SimpleStrategy", "replication_factor": "3"}.
func ParseReplication(options map[string]string) (ReplicationStrategy, error) {
	class := options["class"]
	if i := strings.LastIndexByte(class, '.'); i >= 0 {
		class = class[i+1:]
	}
	switch class {
	case "SimpleStrategy":
		rf, err := parseRF(options["replication_factor"])
		if err != nil {
			return nil, err
		}
		return SimpleStrategy{RF: rf}, nil
	case "NetworkTopologyStrategy":
		dcs := make(map[string]int, len(options))
		keys := make([]string, 0, len(options))
		for k := range options {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "class" {
				continue
			}
			rf, err := parseRF(options[k])
			if err != nil {
				return nil, fmt.Errorf("datacenter %s: %w", k, err)
			}
			dcs[k] = rf
		}
		return NetworkTopologyStrategy{DCs: dcs}, nil
	case "LocalStrategy":
		return LocalStrategy{}, nil
	case "EverywhereStrategy":
		return EverywhereStrategy{}, nil
	default:
		return nil, fmt.Errorf("unsupported replication strategy %q", options["class"])
	}
}

// parseRF accepts both "3" and the transient replication form "3/1".
func parseRF(v string) (int, error) {
	if i := strings.IndexByte(v, '/'); i >= 0 {
		v = v[:i]
	}
	rf, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid replication factor %q: %w", v, err)
	}
	if rf < 0 {
		return 0, fmt.Errorf("negative replication factor %d", rf)
	}
	return rf, nil
}
