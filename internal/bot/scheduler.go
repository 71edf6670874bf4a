package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/botfleet/internal/bot/tasks"
	"github.com/edgard/botfleet/internal/config"
	"github.com/edgard/botfleet/internal/logger"
)

// Scheduler runs the enabled maintenance tasks on their cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
	scheduled []string

	// ctx is handed to every task run and cancelled by Stop.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler for the tasks in taskMap. Nothing runs until Start.
func NewScheduler(log *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	s, err := gocron.NewScheduler(gocron.WithLogger(logger.NewGocronLogger(log)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:       ctx,
		cancel:    cancel,
		scheduler: s,
		logger:    log.With("component", "scheduler"),
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start registers every enabled task and starts ticking. A task with an invalid
// schedule is logged and skipped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	var names []string
	if s.cfg != nil {
		for name := range s.cfg.Tasks {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	s.scheduled = s.scheduled[:0]
	for _, taskName := range names {
		taskConfig := s.cfg.Tasks[taskName]
		if !taskConfig.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", taskName)
			continue
		}

		taskFunc, exists := s.taskMap[taskName]
		if !exists {
			s.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", taskName)
			continue
		}

		_, err := s.scheduler.NewJob(
			gocron.CronJob(taskConfig.Schedule, true),
			gocron.NewTask(s.runTask, s.ctx, taskName, taskFunc),
			gocron.WithName(taskName),
			// A slow VACUUM or resync must not pile up behind itself.
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", taskConfig.Schedule, "error", err)
			continue
		}

		s.logger.Info("Scheduled task", "task_name", taskName, "schedule", taskConfig.Schedule)
		s.scheduled = append(s.scheduled, taskName)
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", len(s.scheduled))

	return nil
}

// runTask is the gocron entry point for every job.
func (s *Scheduler) runTask(ctx context.Context, name string, fn tasks.ScheduledTaskFunc) {
	s.logger.DebugContext(ctx, "Running scheduled task", "task_name", name)
	startTime := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Scheduled task failed", "task_name", name, "error", err)
	}
	s.logger.DebugContext(ctx, "Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
}

// Scheduled returns the names of the tasks registered by the last Start.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scheduled...)
}

// Stop shuts the scheduler down, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}
