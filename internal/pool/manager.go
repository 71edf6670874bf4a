// Package pool keeps the set of running worker bots equal to the stored configuration.
package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/botfleet/internal/database"
	"github.com/edgard/botfleet/internal/logger"
	"github.com/edgard/botfleet/internal/metrics"
	"github.com/edgard/botfleet/internal/worker"
)

// ErrClosed is returned by Sync after Shutdown.
var ErrClosed = errors.New("worker pool is shut down")

// Runner starts one polling loop and returns its handle without blocking.
type Runner interface {
	Run(ctx context.Context) *worker.Handle
}

// Factory constructs the runner for a bot configuration. An error is a start failure.
type Factory func(ctx context.Context, cfg database.BotConfig) (Runner, error)

// Source provides the desired set of bots.
type Source interface {
	ListBots(ctx context.Context) ([]database.BotConfig, error)
}

// Options tune reconciliation.
type Options struct {
	ShutdownTimeout  time.Duration
	SyncTimeout      time.Duration
	StartConcurrency int
}

// Result summarizes one reconciliation.
type Result struct {
	Stopped    int
	Started    int
	Failed     int
	Duplicates int
}

// Status describes one entry of the active set.
type Status struct {
	Token     string
	StartedAt time.Time
	Running   bool
}

// Manager owns the active set of worker handles, keyed by token.
type Manager struct {
	source  Source
	factory Factory
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics

	// root parents every worker loop and triggered sync.
	root   context.Context
	cancel context.CancelFunc

	reconcileMu sync.Mutex

	mu      sync.Mutex
	active  map[string]*worker.Handle
	closed  bool
	pending sync.WaitGroup
}

// NewManager creates an empty pool. No worker runs until the first Sync or Reconcile.
func NewManager(source Source, factory Factory, opts Options, log *slog.Logger, m *metrics.Metrics) *Manager {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.StartConcurrency < 1 {
		opts.StartConcurrency = 1
	}
	root, cancel := context.WithCancel(context.Background())
	return &Manager{
		source:  source,
		factory: factory,
		opts:    opts,
		logger:  log.With("component", "worker_pool"),
		metrics: m,
		root:    root,
		cancel:  cancel,
		active:  make(map[string]*worker.Handle),
	}
}

// Reconcile stops every active worker, then starts one per entry of configs.
// Calls are serialized. It returns once every start has been initiated.
func (m *Manager) Reconcile(ctx context.Context, configs []database.BotConfig) Result {
	m.reconcileMu.Lock()
	defer m.reconcileMu.Unlock()

	return m.reconcileLocked(ctx, configs)
}

// Sync reads the current configuration from the source and reconciles against it.
// The read happens under the reconcile lock so queued syncs see the latest rows.
// A failed read leaves the active set untouched.
func (m *Manager) Sync(ctx context.Context) (Result, error) {
	m.reconcileMu.Lock()
	defer m.reconcileMu.Unlock()

	if m.isClosed() {
		return Result{}, ErrClosed
	}

	configs, err := m.source.ListBots(ctx)
	if err != nil {
		m.metrics.ObserveReconcile(0, err)
		m.logger.ErrorContext(ctx, "Failed to load bot configurations", "error", err)
		return Result{}, fmt.Errorf("failed to load bot configurations: %w", err)
	}

	return m.reconcileLocked(ctx, configs), nil
}

// Trigger schedules a Sync in the background and returns immediately.
func (m *Manager) Trigger() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Debug("Ignoring trigger after shutdown")
		return
	}
	m.pending.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.pending.Done()

		ctx, cancel := context.WithTimeout(m.root, m.opts.SyncTimeout)
		defer cancel()

		if _, err := m.Sync(ctx); err != nil && !errors.Is(err, ErrClosed) {
			m.logger.Error("Triggered sync failed", "error", err)
		}
	}()
}

func (m *Manager) reconcileLocked(ctx context.Context, configs []database.BotConfig) Result {
	start := time.Now()
	var res Result

	res.Stopped = m.stopAll(ctx)

	unique := make([]database.BotConfig, 0, len(configs))
	seen := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		if _, dup := seen[cfg.Token]; dup {
			res.Duplicates++
			m.logger.WarnContext(ctx, "Skipping duplicate bot token", "bot_id", cfg.ID, "token_prefix", logger.MaskToken(cfg.Token))
			continue
		}
		seen[cfg.Token] = struct{}{}
		unique = append(unique, cfg)
	}

	runners := make([]Runner, len(unique))
	errs := make([]error, len(unique))

	var g errgroup.Group
	g.SetLimit(m.opts.StartConcurrency)
	for i, cfg := range unique {
		g.Go(func() error {
			runners[i], errs[i] = m.factory(ctx, cfg)
			return nil
		})
	}
	_ = g.Wait()

	for i, cfg := range unique {
		log := m.logger.With("bot_id", cfg.ID, "token_prefix", logger.MaskToken(cfg.Token))
		if errs[i] != nil {
			res.Failed++
			log.ErrorContext(ctx, "Failed to start worker", "error", errs[i])
			continue
		}
		if m.root.Err() != nil {
			res.Failed++
			log.WarnContext(ctx, "Pool shutting down, worker not started")
			continue
		}

		h := runners[i].Run(m.root)
		m.mu.Lock()
		m.active[cfg.Token] = h
		m.mu.Unlock()
		res.Started++
	}

	m.metrics.SetWorkersActive(res.Started)
	m.metrics.ObserveReconcile(res.Failed, nil)
	m.logger.InfoContext(ctx, "Worker pool reconciled",
		"stopped", res.Stopped,
		"started", res.Started,
		"failed", res.Failed,
		"duplicates", res.Duplicates,
		"duration", time.Since(start))

	return res
}

// stopAll stops every active handle concurrently and clears the active set.
func (m *Manager) stopAll(ctx context.Context) int {
	m.mu.Lock()
	handles := make([]*worker.Handle, 0, len(m.active))
	for _, h := range m.active {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	var g errgroup.Group
	for _, h := range handles {
		g.Go(func() error {
			if err := h.Stop(m.opts.ShutdownTimeout); err != nil {
				m.logger.WarnContext(ctx, "Worker did not stop cleanly, abandoning it", "token_prefix", logger.MaskToken(h.Token()), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	clear(m.active)
	m.mu.Unlock()

	return len(handles)
}

// Active returns the active set sorted by token.
func (m *Manager) Active() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.active))
	for token, h := range m.active {
		out = append(out, Status{Token: token, StartedAt: h.StartedAt(), Running: h.Running()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Exited returns the tokens whose loop has returned without being stopped.
func (m *Manager) Exited() []string {
	var tokens []string
	for _, s := range m.Active() {
		if !s.Running {
			tokens = append(tokens, s.Token)
		}
	}
	return tokens
}

// Shutdown refuses further triggers, waits for in-flight syncs and stops every worker.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for pending syncs: %w", ctx.Err())
	}

	m.reconcileMu.Lock()
	defer m.reconcileMu.Unlock()

	stopped := m.stopAll(ctx)
	m.metrics.SetWorkersActive(0)
	m.logger.InfoContext(ctx, "Worker pool shut down", "stopped", stopped)
	return nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
