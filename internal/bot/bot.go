// Package bot wires the admin bot, the worker pool, the HTTP server and the
// scheduler together and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Poller is a long-polling Telegram client. *tgbot.Bot satisfies it.
type Poller interface {
	Start(ctx context.Context)
}

// WorkerPool is the lifecycle surface of the pool manager.
type WorkerPool interface {
	Trigger()
	Shutdown(ctx context.Context) error
}

// HTTPServer serves until its context is cancelled.
type HTTPServer interface {
	Run(ctx context.Context) error
}

// TaskScheduler runs scheduled tasks between Start and Stop.
type TaskScheduler interface {
	Start() error
	Stop() error
}

// Bot represents the supervisor and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	admin     Poller
	pool      WorkerPool
	server    HTTPServer
	scheduler TaskScheduler
}

// NewBot creates the orchestrator. server may be nil to run without the HTTP listener.
func NewBot(logger *slog.Logger, admin Poller, pool WorkerPool, server HTTPServer, scheduler TaskScheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		admin:     admin,
		pool:      pool,
		server:    server,
		scheduler: scheduler,
	}
}

// Run starts every component, triggers the initial worker sync and blocks until
// ctx is cancelled or a component fails. Workers are always shut down before it returns.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting admin bot listener...")
		b.admin.Start(gCtx)
		b.logger.Info("Admin bot listener stopped.")

		if gCtx.Err() == nil {
			return fmt.Errorf("admin bot listener stopped unexpectedly")
		}
		return nil
	})

	if b.server != nil {
		g.Go(func() error {
			if err := b.server.Run(gCtx); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.pool.Trigger()

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	// ctx is done by now. Each worker stop is bounded by the pool's shutdown timeout.
	if shutdownErr := b.pool.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
		b.logger.Error("Worker pool shutdown failed", "error", shutdownErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
