package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/edgard/botfleet/internal/logger"
)

// ErrStopTimeout is returned by Handle.Stop when the loop did not exit in time.
// The loop is abandoned with its context already cancelled.
var ErrStopTimeout = errors.New("worker did not stop in time")

// Handle is the stop/inspect capability of one running polling loop.
type Handle struct {
	token     string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// Go runs fn in its own goroutine under a context derived from parent and returns
// immediately. The returned Handle cancels that context on Stop. A panic in fn is
// logged to log and ends only this loop.
func Go(parent context.Context, token string, log *slog.Logger, fn func(ctx context.Context)) *Handle {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{
		token:     token,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Error("Panic in polling loop", "token_prefix", logger.MaskToken(token), "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn(ctx)
	}()

	return h
}

// Stop cancels the loop and waits up to timeout for it to return.
func (h *Handle) Stop(timeout time.Duration) error {
	h.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return nil
	case <-timer.C:
		return fmt.Errorf("stop worker %s: %w", logger.MaskToken(h.token), ErrStopTimeout)
	}
}

// Done is closed once the loop has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Running reports whether the loop is still executing.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Token returns the bot token the loop polls with.
func (h *Handle) Token() string {
	return h.token
}

// StartedAt returns when the loop was launched.
func (h *Handle) StartedAt() time.Time {
	return h.startedAt
}
