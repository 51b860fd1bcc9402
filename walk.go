package routing

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
	"github.com/scylladb/scylla-client-golang/routing/errs"
	"github.com/scylladb/scylla-client-golang/routing/logx"
)

// Reporter receives the error of every node that failed during a walk.
// nodeshealth trackers implement it.
type Reporter interface {
	ReportNodeError(node *cluster.Node, err error)
}

// WalkOption configures Walk.
type WalkOption func(*walkConfig)

type walkConfig struct {
	reporter    Reporter
	logger      logx.Logger
	maxAttempts int
}

// WithReporter reports every node failure to r.
func WithReporter(r Reporter) WalkOption {
	return func(c *walkConfig) {
		c.reporter = r
	}
}

// WithWalkLogger logs node failures at debug level.
func WithWalkLogger(l logx.Logger) WalkOption {
	return func(c *walkConfig) {
		c.logger = l
	}
}

// WithMaxAttempts stops the walk after n nodes were tried, zero means no limit.
// The walk then fails with errs.ErrMaxAttempts without pulling the next node.
func WithMaxAttempts(n int) WalkOption {
	return func(c *walkConfig) {
		c.maxAttempts = n
	}
}

// Walk pulls nodes from plan and calls fn with each of them until one succeeds,
// and returns that node.
//
// An empty plan yields errs.ErrNoRoutableNode. When every node of the plan failed
// the error wraps errs.ErrPlanExhausted and the combined node errors, when the
// attempt limit stopped the walk it wraps errs.ErrMaxAttempts instead. A
// cancelled context stops the walk before the next node is tried.
func Walk(ctx context.Context, plan Plan, fn func(context.Context, *cluster.Node) error, opts ...WalkOption) (*cluster.Node, error) {
	cfg := walkConfig{logger: logx.Noop{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	var (
		combined error
		tried    int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, multierr.Append(err, combined)
		}
		if cfg.maxAttempts > 0 && tried >= cfg.maxAttempts {
			return nil, fmt.Errorf("%w: %w", errs.ErrMaxAttempts, combined)
		}
		node, ok := plan.Next()
		if !ok {
			break
		}
		tried++
		err := fn(ctx, node)
		if err == nil {
			return node, nil
		}
		cfg.logger.Debug("node failed, trying next one",
			logx.A("node", node.String()), logx.A("attempt", tried), logx.Error(err))
		if cfg.reporter != nil {
			cfg.reporter.ReportNodeError(node, err)
		}
		combined = multierr.Append(combined, fmt.Errorf("%s: %w", node.HostID, err))
	}
	if tried == 0 {
		return nil, errs.ErrNoRoutableNode
	}
	return nil, fmt.Errorf("%w: %w", errs.ErrPlanExhausted, combined)
}
