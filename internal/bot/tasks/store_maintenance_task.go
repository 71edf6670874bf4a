package tasks

import (
	"context"
	"fmt"
	"time"
)

// newStoreMaintenanceTask checks that the config store answers, compacts it and
// records how many bot configurations it holds. A store that fails the ping is
// not vacuumed.
func newStoreMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "store_maintenance")

	return func(ctx context.Context) (err error) {
		startTime := time.Now()
		bots := 0
		defer func() {
			deps.Metrics.ObserveMaintenance(bots, err)
		}()

		if err := deps.Store.Ping(ctx); err != nil {
			log.ErrorContext(ctx, "Config store unreachable, skipping VACUUM", "error", err)
			return fmt.Errorf("store ping: %w", err)
		}

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "VACUUM failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("store vacuum: %w", err)
		}

		configs, err := deps.Store.ListBots(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Failed to count stored bots", "error", err)
			return fmt.Errorf("store count: %w", err)
		}
		bots = len(configs)

		log.InfoContext(ctx, "Store maintenance finished", "bots", bots, "duration", time.Since(startTime))
		return nil
	}
}
