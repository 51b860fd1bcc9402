package nodeshealth

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/scylladb/scylla-client-golang/routing/cluster"
)

func testNodes(ids ...string) []*cluster.Node {
	out := make([]*cluster.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, cluster.NewNode(id, id+":9042", "dc1", "r1"))
	}
	return out
}

func TestStoreScoreAdjustments(t *testing.T) {
	t.Parallel()

	node := testNodes("node1")[0]
	weight := WeightsFunc(DefaultErrorWeights)
	cfg := DefaultConfig()
	cfg.Scoring.QuarantineCutOff = weight(&net.DNSError{IsTimeout: true}) + weight(errors.New("boom"))
	store, err := NewStore(cfg, nil, []*cluster.Node{node})
	if err != nil {
		t.Fatal(err)
	}

	store.ReportNodeError(node, context.DeadlineExceeded)
	store.ReportNodeError(node, &net.DNSError{IsTimeout: true})
	status, ok := store.Status(node)
	if !ok {
		t.Fatal("node is not tracked")
	}
	if status.Quarantined() || !node.IsUp() {
		t.Fatalf("node quarantined too early with score %d", status.Score())
	}

	store.ReportNodeError(node, errors.New("boom"))
	status, _ = store.Status(node)
	if !status.Quarantined() {
		t.Fatalf("expected node to be quarantined after crossing cutoff, score %d", status.Score())
	}
	if node.State() != cluster.StateQuarantined {
		t.Fatalf("expected node state to follow quarantine, got %s", node.State())
	}
	if len(store.ActiveNodes()) != 0 || len(store.QuarantinedNodes()) != 1 {
		t.Fatalf("unexpected pools: active=%v quarantined=%v", store.ActiveNodes(), store.QuarantinedNodes())
	}
}

func TestStoreResetsScoreAfterInterval(t *testing.T) {
	t.Parallel()

	node := testNodes("node-reset")[0]
	cfg := DefaultConfig()
	cfg.Scoring.ResetInterval = time.Second
	cfg.Scoring.QuarantineCutOff = 9
	store, err := NewStore(cfg, nil, []*cluster.Node{node})
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	store.now = func() time.Time { return now }

	errBoom := errors.New("boom")
	store.ReportNodeError(node, errBoom)
	first, _ := store.Status(node)

	now = now.Add(2 * cfg.Scoring.ResetInterval)
	store.ReportNodeError(node, errBoom)
	after, _ := store.Status(node)

	if after.Score() != DefaultErrorWeights.Default {
		t.Fatalf("expected score to reset between errors, got %d", after.Score())
	}
	if !first.Updated().Before(after.Updated()) {
		t.Fatalf("expected timestamp to advance after reset")
	}
}

func TestStoreTryReleaseQuarantinedNodes(t *testing.T) {
	t.Parallel()

	nodes := testNodes("idle", "busy")
	idle := nodes[0]
	var calls int
	cfg := DefaultConfig()
	cfg.Scoring.QuarantineCutOff = 1
	release := func(n *cluster.Node, status Status) bool {
		calls++
		return n == idle && status.Quarantined()
	}
	store, err := NewStore(cfg, release, nodes)
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range nodes {
		store.ReportNodeError(n, errors.New("boom"))
	}

	released := store.TryReleaseQuarantinedNodes()
	if len(released) != 1 || released[0] != idle {
		t.Fatalf("unexpected nodes released: %v", released)
	}
	if calls != 2 {
		t.Fatalf("expected callback per quarantined node, got %d", calls)
	}
	if !idle.IsUp() || nodes[1].IsUp() {
		t.Fatalf("unexpected states: idle=%s busy=%s", idle.State(), nodes[1].State())
	}
}

func TestStoreReleaseConcurrencyIsBounded(t *testing.T) {
	t.Parallel()

	nodes := testNodes("a", "b", "c")
	started := make(chan *cluster.Node, len(nodes))
	resume := make(chan struct{})
	cfg := DefaultConfig()
	cfg.ReleaseConcurrency = 2
	cfg.Scoring.QuarantineCutOff = 1
	release := func(n *cluster.Node, _ Status) bool {
		started <- n
		<-resume
		return true
	}
	store, err := NewStore(cfg, release, nodes)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range nodes {
		store.ReportNodeError(n, errors.New("boom"))
	}

	done := make(chan []*cluster.Node, 1)
	go func() {
		done <- store.TryReleaseQuarantinedNodes()
	}()

	for i := 0; i < cfg.ReleaseConcurrency; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for release goroutine %d", i)
		}
	}
	select {
	case <-started:
		t.Fatalf("expected concurrency to be limited to %d", cfg.ReleaseConcurrency)
	case <-time.After(50 * time.Millisecond):
	}

	for i := 0; i < cfg.ReleaseConcurrency; i++ {
		resume <- struct{}{}
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("expected additional callback once concurrency slot freed")
	}
	resume <- struct{}{}

	select {
	case released := <-done:
		if len(released) != len(nodes) {
			t.Fatalf("expected %d released nodes, got %d", len(nodes), len(released))
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for TryReleaseQuarantinedNodes completion")
	}
}

func TestStoreReleaseWorker(t *testing.T) {
	t.Parallel()

	node := testNodes("worker")[0]
	cfg := DefaultConfig()
	cfg.Scoring.QuarantineCutOff = 1
	cfg.ReleasePeriod = 5 * time.Millisecond
	var once sync.Once
	releasedCh := make(chan struct{})
	store, err := NewStore(cfg, func(*cluster.Node, Status) bool {
		once.Do(func() { close(releasedCh) })
		return true
	}, []*cluster.Node{node})
	if err != nil {
		t.Fatal(err)
	}
	store.ReportNodeError(node, errors.New("boom"))

	store.Start()
	store.Start()
	defer store.Stop()

	select {
	case <-releasedCh:
	case <-time.After(time.Second):
		t.Fatal("release worker never ran")
	}
}

func TestStoreStopWithoutStart(t *testing.T) {
	t.Parallel()

	store, err := NewStore(DefaultConfig(), func(*cluster.Node, Status) bool { return true }, nil)
	if err != nil {
		t.Fatal(err)
	}
	store.Stop()
	store.Stop()
}

func TestStoreAddRemove(t *testing.T) {
	t.Parallel()

	nodes := testNodes("a", "b")
	store, err := NewStore(DefaultConfig(), nil, nodes)
	if err != nil {
		t.Fatal(err)
	}
	store.AddNode(nodes[0])
	if got := len(store.ActiveNodes()); got != 2 {
		t.Fatalf("duplicate add must be ignored, got %d active", got)
	}
	store.RemoveNode(nodes[0])
	if got := store.ActiveNodes(); len(got) != 1 || got[0] != nodes[1] {
		t.Fatalf("unexpected active nodes after removal: %v", got)
	}
	store.ReportNodeError(nodes[0], errors.New("boom"))
	if _, ok := store.Status(nodes[0]); ok {
		t.Fatal("removed node must not be tracked")
	}
}

func TestStoreRemoveQuarantinedNodePutsItBackUp(t *testing.T) {
	t.Parallel()

	nodes := testNodes("a", "b")
	cfg := DefaultConfig()
	cfg.Scoring.QuarantineCutOff = 1
	store, err := NewStore(cfg, nil, nodes)
	if err != nil {
		t.Fatal(err)
	}

	store.ReportNodeError(nodes[0], errors.New("boom"))
	if nodes[0].State() != cluster.StateQuarantined {
		t.Fatalf("expected a quarantined node, got %s", nodes[0].State())
	}
	store.RemoveNode(nodes[0])
	if nodes[0].State() != cluster.StateUp {
		t.Fatalf("an untracked node must not stay quarantined, got %s", nodes[0].State())
	}
	if len(store.QuarantinedNodes()) != 0 {
		t.Fatalf("unexpected quarantined nodes: %v", store.QuarantinedNodes())
	}

	nodes[1].SetState(cluster.StateDown)
	store.RemoveNode(nodes[1])
	if nodes[1].State() != cluster.StateDown {
		t.Fatalf("removal must keep a down node down, got %s", nodes[1].State())
	}
}

func TestStoreKeepsTopologyDownState(t *testing.T) {
	t.Parallel()

	nodes := testNodes("down", "flapping")
	down, flapping := nodes[0], nodes[1]
	down.SetState(cluster.StateDown)
	cfg := DefaultConfig()
	cfg.Scoring.QuarantineCutOff = 1
	store, err := NewStore(cfg, nil, nodes)
	if err != nil {
		t.Fatal(err)
	}
	if down.State() != cluster.StateDown {
		t.Fatalf("tracking must not bring a down node up, got %s", down.State())
	}

	store.ReportNodeError(down, errors.New("boom"))
	if down.State() != cluster.StateDown {
		t.Fatalf("quarantine must not hide a down node, got %s", down.State())
	}

	store.ReportNodeError(flapping, errors.New("boom"))
	flapping.SetState(cluster.StateDown)
	store.ReleaseNode(flapping)
	if flapping.State() != cluster.StateDown {
		t.Fatalf("release must not bring a down node up, got %s", flapping.State())
	}
	if st, _ := store.Status(flapping); st.Quarantined() {
		t.Fatal("released node must leave quarantine")
	}
}

func TestNewDisabledReturnsNoop(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Disabled = true
	nodes := testNodes("a")
	tracker, err := New(cfg, nil, nodes)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tracker.(*Noop); !ok {
		t.Fatalf("expected Noop tracker, got %T", tracker)
	}
	tracker.ReportNodeError(nodes[0], errors.New("boom"))
	if !nodes[0].IsUp() || len(tracker.ActiveNodes()) != 1 {
		t.Fatal("noop tracker must keep every node active")
	}
}
