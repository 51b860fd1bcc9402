// Package errs contains the errors shared between the routing packages
package errs

import "errors"

var (
	// ErrNoRoutableNode signals that a routing plan yielded no node at all for a statement,
	// which is different from every yielded node failing
	ErrNoRoutableNode = errors.New("no routable node for this statement")
	// ErrPlanExhausted signals that every node of a routing plan has been tried and failed
	ErrPlanExhausted = errors.New("routing plan has been exhausted")
	// ErrMaxAttempts signals that a walk stopped at its attempt limit, the plan may still hold nodes
	ErrMaxAttempts = errors.New("maximum number of attempts reached")
	// ErrUnknownPolicy is returned when a chain declaration names a policy that is not registered
	ErrUnknownPolicy = errors.New("unknown load balancing policy")
	// ErrNotComposable is returned when a non-root stage of a chain cannot consume a parent plan
	ErrNotComposable = errors.New("policy cannot be used as a child policy")
	// ErrEmptyChain is returned when a chain declaration has no root policy
	ErrEmptyChain = errors.New("policy chain is empty")
)
