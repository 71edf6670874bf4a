package pool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/edgard/botfleet/internal/database"
	"github.com/edgard/botfleet/internal/pool"
	"github.com/edgard/botfleet/internal/worker"
)

// tracker records how many loops per token are live at once.
type tracker struct {
	mu      sync.Mutex
	live    map[string]int
	maxLive map[string]int
	starts  []string
}

func newTracker() *tracker {
	return &tracker{live: map[string]int{}, maxLive: map[string]int{}}
}

func (tr *tracker) enter(token string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.live[token]++
	tr.starts = append(tr.starts, token)
	if tr.live[token] > tr.maxLive[token] {
		tr.maxLive[token] = tr.live[token]
	}
}

func (tr *tracker) exit(token string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.live[token]--
}

func (tr *tracker) maxConcurrent() map[string]int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make(map[string]int, len(tr.maxLive))
	for k, v := range tr.maxLive {
		out[k] = v
	}
	return out
}

func (tr *tracker) startOrder() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.starts...)
}

type fakeRunner struct {
	token string
	tr    *tracker
	// exitNow makes the loop return on its own right after starting.
	exitNow bool
	// hang, when set, makes the loop ignore cancellation until it is closed.
	hang <-chan struct{}
}

func (r *fakeRunner) Run(ctx context.Context) *worker.Handle {
	r.tr.enter(r.token)
	started := make(chan struct{})
	h := worker.Go(ctx, r.token, nil, func(ctx context.Context) {
		defer r.tr.exit(r.token)
		close(started)
		if r.exitNow {
			return
		}
		if r.hang != nil {
			<-r.hang
			return
		}
		<-ctx.Done()
	})
	<-started
	return h
}

type fakeSource struct {
	mu   sync.Mutex
	bots []database.BotConfig
	err  error
}

func (s *fakeSource) ListBots(context.Context) ([]database.BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]database.BotConfig(nil), s.bots...), nil
}

func (s *fakeSource) set(bots ...database.BotConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots = bots
}

func bots(tokens ...string) []database.BotConfig {
	out := make([]database.BotConfig, len(tokens))
	for i, tok := range tokens {
		out[i] = database.BotConfig{ID: int64(i + 1), Token: tok, Greeting: "Hi"}
	}
	return out
}

func factoryFor(tr *tracker, failing map[string]bool) pool.Factory {
	return func(_ context.Context, cfg database.BotConfig) (pool.Runner, error) {
		if failing[cfg.Token] {
			return nil, errors.New("unauthorized")
		}
		return &fakeRunner{token: cfg.Token, tr: tr}, nil
	}
}

func newTestManager(t *testing.T, src pool.Source, f pool.Factory) *pool.Manager {
	t.Helper()
	m := pool.NewManager(src, f, pool.Options{
		ShutdownTimeout:  time.Second,
		SyncTimeout:      5 * time.Second,
		StartConcurrency: 4,
	}, nil, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func activeTokens(m *pool.Manager) []string {
	var out []string
	for _, s := range m.Active() {
		out = append(out, s.Token)
	}
	return out
}

func TestReconcileActiveSetMatchesConfigs(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	m := newTestManager(t, &fakeSource{}, factoryFor(tr, nil))
	ctx := context.Background()

	res := m.Reconcile(ctx, bots("A", "B", "C"))
	if diff := cmp.Diff(pool.Result{Started: 3}, res); diff != "" {
		t.Errorf("first Reconcile result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, activeTokens(m)); diff != "" {
		t.Errorf("active set mismatch (-want +got):\n%s", diff)
	}

	res = m.Reconcile(ctx, bots("B", "D"))
	if diff := cmp.Diff(pool.Result{Stopped: 3, Started: 2}, res); diff != "" {
		t.Errorf("second Reconcile result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B", "D"}, activeTokens(m)); diff != "" {
		t.Errorf("active set mismatch (-want +got):\n%s", diff)
	}

	res = m.Reconcile(ctx, nil)
	if res.Started != 0 || len(m.Active()) != 0 {
		t.Errorf("empty Reconcile left %d active, result %+v", len(m.Active()), res)
	}
}

func TestReconcileAbandonsHungWorker(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	release := make(chan struct{})
	factory := func(_ context.Context, cfg database.BotConfig) (pool.Runner, error) {
		r := &fakeRunner{token: cfg.Token, tr: tr}
		if cfg.Token == "H" {
			r.hang = release
		}
		return r, nil
	}

	const shutdownTimeout = 100 * time.Millisecond
	m := pool.NewManager(&fakeSource{}, factory, pool.Options{
		ShutdownTimeout:  shutdownTimeout,
		SyncTimeout:      5 * time.Second,
		StartConcurrency: 4,
	}, nil, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
		close(release)
	})

	ctx := context.Background()
	m.Reconcile(ctx, bots("H", "A"))
	first := m.Active()

	start := time.Now()
	res := m.Reconcile(ctx, bots("H", "B"))
	if elapsed := time.Since(start); elapsed > 10*shutdownTimeout {
		t.Errorf("Reconcile took %v with a hung worker, want about %v", elapsed, shutdownTimeout)
	}
	if diff := cmp.Diff(pool.Result{Stopped: 2, Started: 2}, res); diff != "" {
		t.Errorf("Reconcile result mismatch (-want +got):\n%s", diff)
	}

	active := m.Active()
	if diff := cmp.Diff([]string{"B", "H"}, activeTokens(m)); diff != "" {
		t.Errorf("active set mismatch (-want +got):\n%s", diff)
	}
	for _, s := range active {
		if !s.Running {
			t.Errorf("worker %s not running after Reconcile", s.Token)
		}
		if s.Token == "H" && !s.StartedAt.After(first[1].StartedAt) {
			t.Errorf("H handle was not replaced: started %v, first run started %v", s.StartedAt, first[1].StartedAt)
		}
	}
}

func TestReconcileStartsInConfigOrder(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	m := newTestManager(t, &fakeSource{}, factoryFor(tr, nil))

	m.Reconcile(context.Background(), bots("Z", "A", "M", "B"))

	if diff := cmp.Diff([]string{"Z", "A", "M", "B"}, tr.startOrder()); diff != "" {
		t.Errorf("start order mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileIsolatesStartFailures(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	m := newTestManager(t, &fakeSource{}, factoryFor(tr, map[string]bool{"X": true}))

	res := m.Reconcile(context.Background(), bots("A", "X", "B"))
	if diff := cmp.Diff(pool.Result{Started: 2, Failed: 1}, res); diff != "" {
		t.Errorf("Reconcile result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B"}, activeTokens(m)); diff != "" {
		t.Errorf("active set mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileSkipsDuplicateTokens(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	m := newTestManager(t, &fakeSource{}, factoryFor(tr, nil))

	cfgs := append(bots("A", "B"), database.BotConfig{ID: 3, Token: "A", Greeting: "Again"})
	res := m.Reconcile(context.Background(), cfgs)

	if diff := cmp.Diff(pool.Result{Started: 2, Duplicates: 1}, res); diff != "" {
		t.Errorf("Reconcile result mismatch (-want +got):\n%s", diff)
	}
	if got := tr.maxConcurrent()["A"]; got != 1 {
		t.Errorf("token A had %d concurrent loops, want 1", got)
	}
}

func TestConcurrentReconcilesNeverOverlapLoops(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	m := newTestManager(t, &fakeSource{}, factoryFor(tr, nil))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Reconcile(ctx, bots("A", "B", "C"))
		}()
	}
	wg.Wait()

	for token, n := range tr.maxConcurrent() {
		if n != 1 {
			t.Errorf("token %s had %d concurrent loops, want 1", token, n)
		}
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, activeTokens(m)); diff != "" {
		t.Errorf("active set mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncReadsSource(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	src := &fakeSource{}
	src.set(bots("A")...)
	m := newTestManager(t, src, factoryFor(tr, nil))
	ctx := context.Background()

	if _, err := m.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if diff := cmp.Diff([]string{"A"}, activeTokens(m)); diff != "" {
		t.Errorf("active set mismatch (-want +got):\n%s", diff)
	}

	src.mu.Lock()
	src.err = errors.New("database is locked")
	src.mu.Unlock()

	if _, err := m.Sync(ctx); err == nil {
		t.Fatal("Sync succeeded with failing source")
	}
	if diff := cmp.Diff([]string{"A"}, activeTokens(m)); diff != "" {
		t.Errorf("failed Sync changed active set (-want +got):\n%s", diff)
	}
}

func TestTriggerConvergesToLatestStore(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	src := &fakeSource{}
	m := newTestManager(t, src, factoryFor(tr, nil))

	// Three rapid additions, each followed by a trigger.
	src.set(bots("T1")...)
	m.Trigger()
	src.set(bots("T1", "T2")...)
	m.Trigger()
	src.set(bots("T1", "T2", "T3")...)
	m.Trigger()

	converged := false
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cmp.Equal([]string{"T1", "T2", "T3"}, activeTokens(m)) {
			converged = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !converged {
		t.Fatalf("active set never reached T1,T2,T3: %v", activeTokens(m))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	for token, n := range tr.maxConcurrent() {
		if n != 1 {
			t.Errorf("token %s had %d concurrent loops, want 1", token, n)
		}
	}
	if len(m.Active()) != 0 {
		t.Errorf("active set not empty after Shutdown: %v", activeTokens(m))
	}
}

func TestTriggerReturnsBeforeSyncCompletes(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	f := func(_ context.Context, cfg database.BotConfig) (pool.Runner, error) {
		started <- struct{}{}
		<-release
		return &fakeRunner{token: cfg.Token, tr: newTracker()}, nil
	}

	src := &fakeSource{}
	src.set(bots("A")...)
	m := newTestManager(t, src, f)

	m.Trigger()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("triggered sync never ran")
	}
	if len(m.Active()) != 0 {
		t.Error("worker active before factory returned")
	}
	close(release)
}

func TestExitedReportsFinishedLoops(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	f := func(_ context.Context, cfg database.BotConfig) (pool.Runner, error) {
		return &fakeRunner{token: cfg.Token, tr: tr, exitNow: cfg.Token == "DEAD"}, nil
	}
	m := newTestManager(t, &fakeSource{}, f)

	m.Reconcile(context.Background(), bots("DEAD", "LIVE"))

	deadline := time.Now().Add(5 * time.Second)
	var exited []string
	for time.Now().Before(deadline) {
		if exited = m.Exited(); len(exited) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if diff := cmp.Diff([]string{"DEAD"}, exited); diff != "" {
		t.Errorf("Exited mismatch (-want +got):\n%s", diff)
	}
}

func TestShutdownRefusesFurtherWork(t *testing.T) {
	t.Parallel()

	tr := newTracker()
	src := &fakeSource{}
	src.set(bots("A")...)
	m := newTestManager(t, src, factoryFor(tr, nil))

	if _, err := m.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := m.Sync(context.Background()); !errors.Is(err, pool.ErrClosed) {
		t.Errorf("Sync after Shutdown error = %v, want ErrClosed", err)
	}
	m.Trigger()
	if len(m.Active()) != 0 {
		t.Errorf("active set after Shutdown = %v, want empty", activeTokens(m))
	}
}
