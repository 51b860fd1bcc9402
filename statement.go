// Package routing decides, for every statement, in which order the driver
// should contact cluster nodes.
//
// A Policy turns a Statement and a cluster.Snapshot into a Plan, a lazy
// sequence of nodes the execution layer walks until one of them answers.
// ChildPolicy implementations re-order a plan produced by another policy,
// which lets simple policies be layered over topology-aware ones with Chain.
package routing

import (
	"fmt"

	"github.com/scylladb/scylla-client-golang/routing/token"
)

// Statement carries the routing relevant facts of the statement about to be
// executed. The zero value routes without any hint. It is built by the caller
// per execution and never retained by policies.
type Statement struct {
	// Token is the partition token of the targeted row, meaningful when HasToken is set.
	Token    token.Token
	HasToken bool
	// Keyspace targeted by the statement, empty when unknown.
	Keyspace string
	// IsConfirmedLWT is set only when the server reported, while preparing, that the
	// statement is a lightweight transaction. Policies honoring it contact replicas in
	// a fixed order (replica A, then B, then C) so that Paxos rounds do not contend.
	// Cassandra never reports it, so it is always false there.
	IsConfirmedLWT bool
}

// WithToken returns a copy of s routed by t.
func (s Statement) WithToken(t token.Token) Statement {
	s.Token = t
	s.HasToken = true
	return s
}

// WithLWT returns a copy of s with IsConfirmedLWT set to lwt.
func (s Statement) WithLWT(lwt bool) Statement {
	s.IsConfirmedLWT = lwt
	return s
}

func (s Statement) String() string {
	tok := "none"
	if s.HasToken {
		tok = s.Token.String()
	}
	ks := s.Keyspace
	if ks == "" {
		ks = "none"
	}
	return fmt.Sprintf("Statement(token=%s, keyspace=%s, lwt=%t)", tok, ks, s.IsConfirmedLWT)
}

// NewStatement hashes the partition key components with p into a routed statement.
func NewStatement(p token.Partitioner, keyspace string, partitionKey ...[]byte) (Statement, error) {
	stmt := Statement{Keyspace: keyspace}
	if len(partitionKey) == 0 {
		return stmt, nil
	}
	key, err := token.RoutingKey(partitionKey...)
	if err != nil {
		return Statement{}, err
	}
	return stmt.WithToken(p.Token(key)), nil
}

// PreparedInfo is what a PREPARE response tells the driver about routing.
type PreparedInfo struct {
	Keyspace string
	// PkIndexes are the positions of the bound values forming the partition key,
	// in partition key order.
	PkIndexes []int
	IsLWT     bool
}

// StatementFromPrepared builds the statement of one execution of a prepared
// statement bound to values. Without partition key metadata the statement is
// routed without a token.
func StatementFromPrepared(info PreparedInfo, p token.Partitioner, values [][]byte) (Statement, error) {
	stmt := Statement{Keyspace: info.Keyspace, IsConfirmedLWT: info.IsLWT}
	if len(info.PkIndexes) == 0 {
		return stmt, nil
	}
	components := make([][]byte, 0, len(info.PkIndexes))
	for _, idx := range info.PkIndexes {
		if idx < 0 || idx >= len(values) {
			return Statement{}, fmt.Errorf("partition key index %d out of range of %d bound values", idx, len(values))
		}
		if values[idx] == nil {
			// null partition key, the server rejects it anyway
			return stmt, nil
		}
		components = append(components, values[idx])
	}
	key, err := token.RoutingKey(components...)
	if err != nil {
		return Statement{}, err
	}
	return stmt.WithToken(p.Token(key)), nil
}
