package nodeshealth

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
	"github.com/scylladb/scylla-client-golang/routing/logx"
)

// ReleaseFunc is called for a quarantined node when trying to bring it back.
// Returning true releases the node. It must not block for long, typically it
// is a short connection probe bounded by a timeout.
type ReleaseFunc func(*cluster.Node, Status) bool

// Config configures a Store.
type Config struct {
	Scoring Scoring
	// ReleaseConcurrency caps how many release callbacks run simultaneously.
	ReleaseConcurrency int
	// ReleasePeriod is how often the background worker tries to release quarantined nodes.
	// Negative disables the worker, zero is invalid.
	ReleasePeriod time.Duration
	// Disabled turns health tracking off: every node stays up.
	Disabled bool
	Logger   logx.Logger
}

// Validate checks the configuration.
func (cfg *Config) Validate() error {
	if err := cfg.Scoring.Validate(); err != nil {
		return err
	}
	if cfg.ReleaseConcurrency <= 0 {
		return fmt.Errorf("node health config: ReleaseConcurrency must be > 0 (got %d)", cfg.ReleaseConcurrency)
	}
	if cfg.ReleasePeriod == 0 {
		return errors.New("node health config: ReleasePeriod cannot be zero (set >0 to enable or <0 to disable)")
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Scoring:            DefaultScoring,
		ReleaseConcurrency: 1,
		ReleasePeriod:      time.Minute,
		Logger:             logx.Noop{},
	}
}

// Tracker is what the rest of the driver needs from a health store.
type Tracker interface {
	ActiveNodes() []*cluster.Node
	QuarantinedNodes() []*cluster.Node
	AddNode(*cluster.Node)
	RemoveNode(*cluster.Node)
	ReportNodeError(*cluster.Node, error)
	TryReleaseQuarantinedNodes() []*cluster.Node
	Start()
	Stop()
}

// New returns a Store, or a Noop tracker when cfg.Disabled is set.
func New(cfg Config, release ReleaseFunc, initial []*cluster.Node) (Tracker, error) {
	if cfg.Disabled {
		return NewNoop(initial), nil
	}
	return NewStore(cfg, release, initial)
}

// Store scores node errors and keeps active and quarantined node lists.
// Quarantining or releasing a node also flips its cluster.Node state, which is
// what routing policies look at.
type Store struct {
	mu       sync.Mutex
	cfg      Config
	release  ReleaseFunc
	statuses map[*cluster.Node]*Status
	now      func() time.Time

	active      *atomic.Pointer[[]*cluster.Node]
	quarantined *atomic.Pointer[[]*cluster.Node]

	running   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewStore builds a Store tracking initial nodes, all of them active.
func NewStore(cfg Config, release ReleaseFunc, initial []*cluster.Node) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.Noop{}
	}
	s := &Store{
		cfg:         cfg,
		release:     release,
		statuses:    make(map[*cluster.Node]*Status, len(initial)),
		now:         func() time.Time { return time.Now().UTC() },
		active:      atomic.NewPointer(&[]*cluster.Node{}),
		quarantined: atomic.NewPointer(&[]*cluster.Node{}),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, n := range initial {
		s.AddNode(n)
	}
	return s, nil
}

// ActiveNodes returns a copy of the non-quarantined nodes.
func (s *Store) ActiveNodes() []*cluster.Node {
	return slices.Clone(*s.active.Load())
}

// QuarantinedNodes returns a copy of the quarantined nodes.
func (s *Store) QuarantinedNodes() []*cluster.Node {
	return slices.Clone(*s.quarantined.Load())
}

// Status returns the health record of n.
func (s *Store) Status(n *cluster.Node) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[n]
	if !ok {
		return Status{}, false
	}
	return *st, true
}

// AddNode starts tracking n as active. Tracking an already known node is a no-op.
func (s *Store) AddNode(n *cluster.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statuses[n]; ok {
		return
	}
	s.statuses[n] = s.cfg.Scoring.newStatus(s.now())
	active := append(s.ActiveNodes(), n)
	s.active.Store(&active)
	n.CompareAndSwapState(cluster.StateQuarantined, cluster.StateUp)
}

// RemoveNode stops tracking n. A quarantined node is put back up since
// nothing would release it anymore.
func (s *Store) RemoveNode(n *cluster.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[n]
	if !ok {
		return
	}
	delete(s.statuses, n)
	s.storeWithout(n)
	if st.quarantined {
		n.CompareAndSwapState(cluster.StateQuarantined, cluster.StateUp)
	}
}

func (s *Store) storeWithout(n *cluster.Node) {
	active := slices.DeleteFunc(s.ActiveNodes(), func(x *cluster.Node) bool { return x == n })
	quarantined := slices.DeleteFunc(s.QuarantinedNodes(), func(x *cluster.Node) bool { return x == n })
	s.active.Store(&active)
	s.quarantined.Store(&quarantined)
}

// ReportNodeError adds the penalty of err to the score of n and quarantines it
// once the score reaches the cut-off.
func (s *Store) ReportNodeError(n *cluster.Node, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.statuses[n]
	if st == nil {
		return
	}
	if !s.cfg.Scoring.apply(st, err, s.now()) {
		return
	}
	s.storeWithout(n)
	quarantined := append(s.QuarantinedNodes(), n)
	s.quarantined.Store(&quarantined)
	n.CompareAndSwapState(cluster.StateUp, cluster.StateQuarantined)
	s.cfg.Logger.Warn("node quarantined",
		logx.A("node", n.String()),
		logx.A("score", st.score),
		logx.Error(err),
	)
}

// ReleaseNode takes n out of quarantine without asking the release callback.
func (s *Store) ReleaseNode(n *cluster.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(n)
}

func (s *Store) releaseLocked(n *cluster.Node) bool {
	st := s.statuses[n]
	if st == nil || !st.quarantined {
		return false
	}
	s.cfg.Scoring.release(st, s.now())
	s.storeWithout(n)
	active := append(s.ActiveNodes(), n)
	s.active.Store(&active)
	n.CompareAndSwapState(cluster.StateQuarantined, cluster.StateUp)
	return true
}

// TryReleaseQuarantinedNodes runs the release callback for every quarantined node,
// at most ReleaseConcurrency at a time, and releases those it approves.
func (s *Store) TryReleaseQuarantinedNodes() []*cluster.Node {
	if s.release == nil {
		return nil
	}

	type candidate struct {
		node   *cluster.Node
		status Status
	}
	s.mu.Lock()
	var candidates []candidate
	for _, n := range s.QuarantinedNodes() {
		if st := s.statuses[n]; st != nil {
			candidates = append(candidates, candidate{node: n, status: *st})
		}
	}
	s.mu.Unlock()
	if len(candidates) == 0 {
		return nil
	}

	work := make(chan candidate, len(candidates))
	for _, c := range candidates {
		work <- c
	}
	close(work)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved []*cluster.Node
	)
	for i := 0; i < s.cfg.ReleaseConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				if s.release(c.node, c.status) {
					mu.Lock()
					approved = append(approved, c.node)
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	var released []*cluster.Node
	for _, n := range approved {
		if s.releaseLocked(n) {
			released = append(released, n)
			s.cfg.Logger.Info("node released from quarantine", logx.A("node", n.String()))
		}
	}
	return released
}

// Start launches the periodic release worker. Calling it more than once is a no-op.
func (s *Store) Start() {
	if s.release == nil || s.cfg.ReleasePeriod <= 0 {
		return
	}
	s.startOnce.Do(func() {
		s.running.Store(true)
		go s.releaseLoop()
	})
}

func (s *Store) releaseLoop() {
	defer close(s.done)
	t := time.NewTicker(s.cfg.ReleasePeriod)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.TryReleaseQuarantinedNodes()
		}
	}
}

// Stop stops the release worker and waits for it to exit.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.running.Load() {
		<-s.done
	}
}

var _ Tracker = (*Store)(nil)
