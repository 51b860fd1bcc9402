package routing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

// Label constants.
const (
	LblPolicy = "policy"
	LblLWT    = "lwt"
)

// Metrics holds the collectors updated by instrumented policies.
type Metrics struct {
	Plans          *prometheus.CounterVec
	EmptyPlans     *prometheus.CounterVec
	PlanningMicros *prometheus.HistogramVec
}

// NewMetrics creates collectors under namespace. They are not registered.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Plans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "plans_total",
				Help:      "Number of routing plans produced.",
			}, []string{LblPolicy, LblLWT}),
		EmptyPlans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "empty_plans_total",
				Help:      "Number of routing plans that yielded no node.",
			}, []string{LblPolicy}),
		PlanningMicros: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "planning_duration_micros",
				Help:      "Bucketed histogram of time (us) spent producing a routing plan.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 16), // 0.5us ~ 16ms
			}, []string{LblPolicy}),
	}
}

// Register registers every collector with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Plans, m.EmptyPlans, m.PlanningMicros} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Instrument wraps p so that every plan it produces is counted in m. The result
// is a ChildPolicy when p is one.
func Instrument(p Policy, m *Metrics) Policy {
	ip := &InstrumentedPolicy{policy: p, metrics: m, name: p.Name()}
	if c, ok := p.(ChildPolicy); ok {
		return &instrumentedChildPolicy{InstrumentedPolicy: ip, child: c}
	}
	return ip
}

// InstrumentedPolicy decorates a policy with Prometheus metrics.
type InstrumentedPolicy struct {
	policy  Policy
	metrics *Metrics
	name    string
}

// Name implements Policy.
func (p *InstrumentedPolicy) Name() string { return p.name }

// Unwrap returns the decorated policy.
func (p *InstrumentedPolicy) Unwrap() Policy { return p.policy }

// Plan implements Policy.
func (p *InstrumentedPolicy) Plan(stmt Statement, snap *cluster.Snapshot) Plan {
	start := time.Now()
	plan := p.policy.Plan(stmt, snap)
	p.observe(start, lwtLabel(stmt.IsConfirmedLWT))
	return p.countEmpty(plan)
}

func (p *InstrumentedPolicy) observe(start time.Time, lwt string) {
	p.metrics.PlanningMicros.WithLabelValues(p.name).Observe(float64(time.Since(start).Nanoseconds()) / 1e3)
	p.metrics.Plans.WithLabelValues(p.name, lwt).Inc()
}

func (p *InstrumentedPolicy) countEmpty(plan Plan) Plan {
	first := true
	return FuncPlan(func() (*cluster.Node, bool) {
		n, ok := plan.Next()
		if first {
			first = false
			if !ok {
				p.metrics.EmptyPlans.WithLabelValues(p.name).Inc()
			}
		}
		return n, ok
	})
}

type instrumentedChildPolicy struct {
	*InstrumentedPolicy
	child ChildPolicy
}

func (p *instrumentedChildPolicy) ApplyChildPolicy(nodes []*cluster.Node) Plan {
	start := time.Now()
	plan := p.child.ApplyChildPolicy(nodes)
	p.observe(start, lwtLabel(false))
	return p.countEmpty(plan)
}

func (p *instrumentedChildPolicy) SpreadsLoad() bool { return spreadsLoad(p.child) }

func lwtLabel(lwt bool) string {
	if lwt {
		return "true"
	}
	return "false"
}
