// Package cluster holds the topology view that routing policies plan against:
// node handles, token ownership and keyspace replication.
//
// Everything in this package is maintained by topology discovery. Routing
// policies only read it: a *Node is shared by every snapshot and plan that
// refers to it, and a *Snapshot never changes once built.
package cluster

import (
	"fmt"

	"go.uber.org/atomic"

	"github.com/scylladb/scylla-client-golang/routing/token"
)

// State is the health of a node as seen by the driver.
type State uint32

const (
	// StateUp means the node accepts requests.
	StateUp State = iota
	// StateDown means the node is known to be unreachable.
	StateDown
	// StateQuarantined means the node failed too often recently and should only be
	// tried after healthy nodes.
	StateQuarantined
)

func (s State) String() string {
	switch s {
	case StateUp:
		return "UP"
	case StateDown:
		return "DOWN"
	case StateQuarantined:
		return "QUARANTINED"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// Node is a shared handle to one cluster member. Identity fields never change
// after construction; State may change at any time and is read atomically.
type Node struct {
	HostID     string
	Address    string
	Datacenter string
	Rack       string
	Tokens     []token.Token

	state atomic.Uint32
}

// NewNode creates an up node.
func NewNode(hostID, address, datacenter, rack string, tokens ...token.Token) *Node {
	return &Node{
		HostID:     hostID,
		Address:    address,
		Datacenter: datacenter,
		Rack:       rack,
		Tokens:     tokens,
	}
}

// State returns the current health state.
func (n *Node) State() State {
	return State(n.state.Load())
}

// IsUp reports whether the node is currently up.
func (n *Node) IsUp() bool {
	return n.State() == StateUp
}

// SetState changes the health state. Only topology and health maintainers call it,
// routing policies never do.
//
// The state holds both liveness, owned by topology discovery (Up, Down), and
// quarantine, owned by the health store. The health store only moves a node
// between Up and Quarantined, so a Down set by discovery is never overwritten.
func (n *Node) SetState(s State) {
	n.state.Store(uint32(s))
}

// CompareAndSwapState sets the state to to if it currently is from.
func (n *Node) CompareAndSwapState(from, to State) bool {
	return n.state.CompareAndSwap(uint32(from), uint32(to))
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s, dc=%s, rack=%s)", n.HostID, n.Address, n.Datacenter, n.Rack)
}
