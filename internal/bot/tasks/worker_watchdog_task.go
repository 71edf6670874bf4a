package tasks

import (
	"context"

	"github.com/edgard/botfleet/internal/logger"
)

// newWorkerWatchdogTask triggers a resync when a worker's polling loop has returned
// on its own, for example after its token was revoked.
func newWorkerWatchdogTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "worker_watchdog")

	return func(ctx context.Context) error {
		exited := deps.Pool.Exited()
		if len(exited) == 0 {
			log.DebugContext(ctx, "All workers running")
			return nil
		}

		masked := make([]string, len(exited))
		for i, token := range exited {
			masked[i] = logger.MaskToken(token)
		}
		log.WarnContext(ctx, "Workers exited unexpectedly, resyncing pool", "count", len(exited), "token_prefixes", masked)

		deps.Pool.Trigger()
		return nil
	}
}
