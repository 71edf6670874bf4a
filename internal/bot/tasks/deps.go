// Package tasks implements the supervisor's scheduled maintenance tasks.
package tasks

import (
	"log/slog"

	"github.com/edgard/botfleet/internal/config"
	"github.com/edgard/botfleet/internal/database"
	"github.com/edgard/botfleet/internal/metrics"
)

// WorkerPool is the part of the pool manager the watchdog needs.
type WorkerPool interface {
	Exited() []string
	Trigger()
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Pool    WorkerPool
	Config  *config.Config
	Metrics *metrics.Metrics
}
