package routing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/scylladb/scylla-client-golang/routing/errs"
	"github.com/scylladb/scylla-client-golang/routing/logx"
)

// Builtin policy names usable in a ChainSpec.
const (
	PolicyDefault      = "default"
	PolicyTokenAware   = "token-aware"
	PolicyRoundRobin   = "round-robin"
	PolicyDCAware      = "dc-aware"
	PolicyHealthyFirst = "healthy-first"
	PolicyShuffle      = "shuffle"
)

// PolicySpec declares one stage of a chain.
type PolicySpec struct {
	Name string `yaml:"name"`
	// Datacenter and Rack describe the preferred locality of dc-aware and default
	Datacenter string `yaml:"datacenter,omitempty"`
	Rack       string `yaml:"rack,omitempty"`
	// Window limits how many leading nodes shuffle randomizes, zero means all
	Window int `yaml:"window,omitempty"`
	// Seed of shuffle and of default with ShuffleReplicas, zero means the clock
	Seed int64 `yaml:"seed,omitempty"`
	// TokenAware of default, defaults to true
	TokenAware *bool `yaml:"token_aware,omitempty"`
	// ShuffleReplicas of default
	ShuffleReplicas bool `yaml:"shuffle_replicas,omitempty"`
	// Child is the policy token-aware applies to replicas and the remaining nodes
	Child *PolicySpec `yaml:"child,omitempty"`
}

// ChainSpec declares a root policy and the child policies applied after it, in order.
type ChainSpec struct {
	Root     PolicySpec   `yaml:"root"`
	Children []PolicySpec `yaml:"children,omitempty"`
}

// ParseChainSpec decodes a YAML chain declaration. Unknown fields are rejected.
func ParseChainSpec(data []byte) (ChainSpec, error) {
	var spec ChainSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return spec, errs.ErrEmptyChain
		}
		return spec, fmt.Errorf("failed to parse policy chain: %w", err)
	}
	return spec, nil
}

// Factory builds a policy from its declaration. r builds nested declarations.
type Factory func(spec PolicySpec, r *Registry) (Policy, error)

// Registry maps policy names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the builtin policies.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(PolicyDefault, func(spec PolicySpec, _ *Registry) (Policy, error) {
		cfg := NewDefaultPolicyConfig()
		cfg.PreferredDatacenter = spec.Datacenter
		cfg.PreferredRack = spec.Rack
		cfg.ShuffleReplicas = spec.ShuffleReplicas
		cfg.Seed = spec.Seed
		if spec.TokenAware != nil {
			cfg.TokenAware = *spec.TokenAware
		}
		return NewDefaultPolicy(cfg), nil
	})
	r.Register(PolicyTokenAware, func(spec PolicySpec, r *Registry) (Policy, error) {
		if spec.Child == nil {
			return NewTokenAwarePolicy(nil), nil
		}
		child, err := r.BuildChild(*spec.Child)
		if err != nil {
			return nil, fmt.Errorf("token-aware child: %w", err)
		}
		return NewTokenAwarePolicy(child), nil
	})
	r.Register(PolicyRoundRobin, func(PolicySpec, *Registry) (Policy, error) {
		return NewRoundRobinPolicy(), nil
	})
	r.Register(PolicyDCAware, func(spec PolicySpec, _ *Registry) (Policy, error) {
		if spec.Datacenter == "" {
			return nil, errors.New("dc-aware requires a datacenter")
		}
		return NewDCAwarePolicy(DefaultPolicyConfig{PreferredDatacenter: spec.Datacenter, PreferredRack: spec.Rack}.Scope()), nil
	})
	r.Register(PolicyHealthyFirst, func(PolicySpec, *Registry) (Policy, error) {
		return NewHealthyFirstPolicy(), nil
	})
	r.Register(PolicyShuffle, func(spec PolicySpec, _ *Registry) (Policy, error) {
		if spec.Window < 0 {
			return nil, fmt.Errorf("shuffle window must be >= 0 (got %d)", spec.Window)
		}
		if spec.Seed != 0 {
			return NewShufflePolicyWithSeed(spec.Window, spec.Seed), nil
		}
		return NewShufflePolicy(spec.Window), nil
	})
	return r
}

// Register adds or replaces the factory of name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered policy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build builds a single policy.
func (r *Registry) Build(spec PolicySpec) (Policy, error) {
	r.mu.RLock()
	f, ok := r.factories[spec.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownPolicy, spec.Name)
	}
	return f(spec, r)
}

// BuildChild builds a policy that must be usable as a child policy.
func (r *Registry) BuildChild(spec PolicySpec) (ChildPolicy, error) {
	p, err := r.Build(spec)
	if err != nil {
		return nil, err
	}
	c, ok := p.(ChildPolicy)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrNotComposable, spec.Name)
	}
	return c, nil
}

// BuildChain builds the declared chain. Every stage is checked and all problems
// are reported together.
func (r *Registry) BuildChain(spec ChainSpec) (Policy, error) {
	if spec.Root.Name == "" {
		return nil, errs.ErrEmptyChain
	}
	root, err := r.Build(spec.Root)
	if err != nil {
		err = fmt.Errorf("root: %w", err)
	}
	children := make([]ChildPolicy, 0, len(spec.Children))
	for i, cs := range spec.Children {
		c, cerr := r.BuildChild(cs)
		if cerr != nil {
			err = multierr.Append(err, fmt.Errorf("child %d: %w", i, cerr))
			continue
		}
		children = append(children, c)
	}
	if err != nil {
		return nil, err
	}
	return Chain(root, children...), nil
}

// Config configures the policy returned by NewPolicy.
type Config struct {
	// DefaultPolicy configures the policy used when Chain is nil
	DefaultPolicy DefaultPolicyConfig
	// Chain declares a custom policy chain
	Chain *ChainSpec
	// Registry resolves the names of Chain
	Registry *Registry
	// Metrics instruments the resulting policy when set
	Metrics *Metrics
	Logger  logx.Logger
}

// Option a configuration option
type Option func(config *Config)

// NewDefaultConfig creates default `Config`
func NewDefaultConfig() *Config {
	return &Config{
		DefaultPolicy: NewDefaultPolicyConfig(),
		Logger:        logx.Noop{},
	}
}

// WithPreferredDatacenter makes the default policy try nodes of dc first
func WithPreferredDatacenter(dc string) Option {
	return func(config *Config) {
		config.DefaultPolicy.PreferredDatacenter = dc
	}
}

// WithPreferredRack makes the default policy try nodes of the rack first, then the rest of dc
func WithPreferredRack(dc, rack string) Option {
	return func(config *Config) {
		config.DefaultPolicy.PreferredDatacenter = dc
		config.DefaultPolicy.PreferredRack = rack
	}
}

// WithTokenAware turns replica first ordering of the default policy on or off
func WithTokenAware(enabled bool) Option {
	return func(config *Config) {
		config.DefaultPolicy.TokenAware = enabled
	}
}

// WithShuffleReplicas makes the default policy pick equally suitable nodes at random instead of rotating them
func WithShuffleReplicas(enabled bool) Option {
	return func(config *Config) {
		config.DefaultPolicy.ShuffleReplicas = enabled
	}
}

// WithSeed sets the seed used for random choices
func WithSeed(seed int64) Option {
	return func(config *Config) {
		config.DefaultPolicy.Seed = seed
	}
}

// WithChain replaces the default policy by a declared chain
func WithChain(spec ChainSpec) Option {
	return func(config *Config) {
		config.Chain = &spec
	}
}

// WithRegistry resolves chain policy names with r, which allows custom policies
func WithRegistry(r *Registry) Option {
	return func(config *Config) {
		config.Registry = r
	}
}

// WithMetrics counts plans of the resulting policy in m
func WithMetrics(m *Metrics) Option {
	return func(config *Config) {
		config.Metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(l logx.Logger) Option {
	if l == nil {
		panic("logger can't be nil")
	}
	return func(config *Config) {
		config.Logger = l
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var err error
	if c.DefaultPolicy.PreferredRack != "" && c.DefaultPolicy.PreferredDatacenter == "" {
		err = multierr.Append(err, errors.New("preferred rack requires a preferred datacenter"))
	}
	if c.Chain != nil && c.Chain.Root.Name == "" {
		err = multierr.Append(err, errs.ErrEmptyChain)
	}
	if c.Logger == nil {
		err = multierr.Append(err, errors.New("logger is required"))
	}
	return err
}

// NewPolicy builds the policy described by opts.
func NewPolicy(opts ...Option) (Policy, error) {
	cfg := NewDefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid routing config: %w", err)
	}

	var policy Policy
	if cfg.Chain != nil {
		registry := cfg.Registry
		if registry == nil {
			registry = NewRegistry()
		}
		p, err := registry.BuildChain(*cfg.Chain)
		if err != nil {
			return nil, err
		}
		policy = p
	} else {
		policy = NewDefaultPolicy(cfg.DefaultPolicy)
	}

	if cfg.Metrics != nil {
		policy = Instrument(policy, cfg.Metrics)
	}
	cfg.Logger.Info("routing policy configured", logx.A("policy", policy.Name()))
	return policy, nil
}
