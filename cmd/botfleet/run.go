package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/edgard/botfleet/internal/bot"
	"github.com/edgard/botfleet/internal/bot/handlers"
	"github.com/edgard/botfleet/internal/bot/tasks"
	"github.com/edgard/botfleet/internal/config"
	"github.com/edgard/botfleet/internal/database"
	"github.com/edgard/botfleet/internal/logger"
	"github.com/edgard/botfleet/internal/metrics"
	"github.com/edgard/botfleet/internal/pool"
	"github.com/edgard/botfleet/internal/server"
	"github.com/edgard/botfleet/internal/telegram"
	"github.com/edgard/botfleet/internal/worker"
)

// runSupervisor initializes every component (config, logger, db, metrics, worker
// pool, admin bot, scheduler, http server) and blocks until ctx is cancelled.
func runSupervisor(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	workerOpts := worker.Options{
		InitTimeout: cfg.Worker.InitTimeout,
		PollTimeout: cfg.Worker.PollTimeout,
	}
	factory := func(ctx context.Context, bc database.BotConfig) (pool.Runner, error) {
		w, err := worker.New(ctx, bc, workerOpts, log, m)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	mgr := pool.NewManager(store, factory, pool.Options{
		ShutdownTimeout:  cfg.Worker.ShutdownTimeout,
		SyncTimeout:      cfg.Worker.SyncTimeout,
		StartConcurrency: cfg.Worker.StartConcurrency,
	}, log, m)

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Pool:      mgr,
		NewSender: handlers.NewSender,
		Metrics:   m,
	}
	tDeps := tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Pool:    mgr,
		Config:  cfg,
		Metrics: m,
	}

	botOpts := []tgbot.Option{
		tgbot.WithAllowedUpdates(tgbot.AllowedUpdates{"message"}),
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithCheckInitTimeout(cfg.Telegram.RequestTimeout),
		tgbot.WithHTTPClient(cfg.Telegram.PollTimeout, &http.Client{
			Timeout: cfg.Telegram.PollTimeout + cfg.Telegram.RequestTimeout,
		}),
		tgbot.WithErrorsHandler(func(err error) {
			log.Warn("Admin bot polling error", "error", err)
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return err
	}

	registered := handlers.RegisterAllCommands(hDeps)
	if _, err := telegram.RegisterHandlers(tg, log, registered); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}

	cmdCtx, cancel := context.WithTimeout(ctx, cfg.Telegram.RequestTimeout)
	if err := telegram.RegisterCommands(cmdCtx, tg, handlers.BotCommands(registered)); err != nil {
		// The menu is cosmetic; commands work without it.
		log.Warn("Failed to publish command menu", "error", err)
	}
	cancel()

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	srv := server.New(cfg.HTTP, reg, log)
	app := bot.NewBot(log, tg, mgr, srv, sched)

	log.Info("Starting bot fleet supervisor...", "admin_id", cfg.Telegram.AdminUserID, "http_port", cfg.HTTP.Port)
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Supervisor stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return runErr
	}

	log.Info("Supervisor stopped gracefully.")
	return nil
}
