// Package rt defines routing locality scopes: a rack, a datacenter or the whole
// cluster. Scopes chain through fallbacks (Rack -> Datacenter -> Cluster) so a
// policy can prefer the closest nodes and relax locality step by step.
package rt

import (
	"fmt"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

// Scope is a locality target. Implementations are immutable and safe to share
// across goroutines.
type Scope interface {
	// Name returns a short name, e.g. "Rack".
	Name() string
	// String includes the parameters, e.g. "Rack(dc=us-east, rack=r1)".
	String() string
	// Fallback returns the next broader scope, nil when there is none.
	Fallback() Scope
	// Matches reports whether the node is local for this scope.
	Matches(n *cluster.Node) bool
}

// Chain returns s followed by its fallbacks.
func Chain(s Scope) []Scope {
	var out []Scope
	for ; s != nil; s = s.Fallback() {
		out = append(out, s)
	}
	return out
}

// RackScope targets one rack of a datacenter.
//
//	NewRackScope("us-east", "rack1", NewDCScope("us-east", nil))
//
// tries rack1 first, then the rest of us-east, then anything else.
type RackScope struct {
	datacenter string
	rack       string
	fallback   Scope
}

// NewRackScope creates a RackScope with an optional fallback.
func NewRackScope(datacenter, rack string, fallback Scope) *RackScope {
	return &RackScope{datacenter: datacenter, rack: rack, fallback: fallback}
}

// Name implements Scope.
func (r *RackScope) Name() string { return "Rack" }

func (r *RackScope) String() string {
	return fmt.Sprintf("%s(dc=%s, rack=%s)", r.Name(), r.datacenter, r.rack)
}

// Fallback implements Scope.
func (r *RackScope) Fallback() Scope { return r.fallback }

// Matches implements Scope.
func (r *RackScope) Matches(n *cluster.Node) bool {
	return n.Datacenter == r.datacenter && n.Rack == r.rack
}

// DCScope targets every node of one datacenter.
type DCScope struct {
	datacenter string
	fallback   Scope
}

// NewDCScope creates a DCScope with an optional fallback.
func NewDCScope(datacenter string, fallback Scope) *DCScope {
	return &DCScope{datacenter: datacenter, fallback: fallback}
}

// Name implements Scope.
func (d *DCScope) Name() string { return "Datacenter" }

func (d *DCScope) String() string {
	return fmt.Sprintf("%s(dc=%s)", d.Name(), d.datacenter)
}

// Fallback implements Scope.
func (d *DCScope) Fallback() Scope { return d.fallback }

// Matches implements Scope.
func (d *DCScope) Matches(n *cluster.Node) bool {
	return n.Datacenter == d.datacenter
}

// ClusterScope matches every node. It is the terminal fallback.
type ClusterScope struct{}

// NewClusterScope creates a ClusterScope.
func NewClusterScope() *ClusterScope { return &ClusterScope{} }

// Name implements Scope.
func (*ClusterScope) Name() string { return "Cluster" }

func (*ClusterScope) String() string { return "Cluster()" }

// Fallback implements Scope.
func (*ClusterScope) Fallback() Scope { return nil }

// Matches implements Scope.
func (*ClusterScope) Matches(*cluster.Node) bool { return true }

var (
	_ Scope = (*RackScope)(nil)
	_ Scope = (*DCScope)(nil)
	_ Scope = (*ClusterScope)(nil)
)
