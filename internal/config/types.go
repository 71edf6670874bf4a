// Package config manages application configuration from environment variables,
// an optional config file and default values.
package config

import "time"

// Config defines the application configuration. Values can be set through config.yaml,
// environment variables prefixed with BOT_ (e.g. BOT_TELEGRAM_TOKEN), or the
// ADMIN_BOT_TOKEN / ADMIN_USER_ID / PORT variables.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the admin bot credentials and the operator identity.
type TelegramConfig struct {
	Token          string        `mapstructure:"token"           validate:"required"`
	AdminUserID    int64         `mapstructure:"admin_id"        validate:"required,gt=0"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"    validate:"min=1s,max=5m"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s,max=5m"`
}

// DatabaseConfig locates the SQLite file backing the bot store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// WorkerConfig tunes the worker bots and the pool that runs them.
type WorkerConfig struct {
	DefaultGreeting  string        `mapstructure:"default_greeting"  validate:"required"`
	InitTimeout      time.Duration `mapstructure:"init_timeout"      validate:"min=1s,max=5m"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"  validate:"min=100ms,max=5m"`
	SyncTimeout      time.Duration `mapstructure:"sync_timeout"      validate:"min=1s,max=30m"`
	StartConcurrency int           `mapstructure:"start_concurrency" validate:"min=1,max=256"`
	PollTimeout      time.Duration `mapstructure:"poll_timeout"      validate:"min=1s,max=5m"`
}

// BroadcastConfig controls the /broadcast fan-out.
type BroadcastConfig struct {
	Prefix      string        `mapstructure:"prefix"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=10m"`
	Concurrency int           `mapstructure:"concurrency" validate:"min=1,max=256"`
}

// HTTPConfig controls the liveness and metrics listener.
type HTTPConfig struct {
	Port           int  `mapstructure:"port"            validate:"min=1,max=65535"`
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every operator-facing reply. Fields tagged intverbs are
// rendered with fmt.Sprintf and must carry exactly that many integer verbs.
type MessagesConfig struct {
	Welcome          string `mapstructure:"welcome"            validate:"required"`
	NotAuthorized    string `mapstructure:"not_authorized"     validate:"required"`
	GeneralError     string `mapstructure:"general_error"      validate:"required"`
	AddBotUsage      string `mapstructure:"addbot_usage"       validate:"required"`
	BotAdded         string `mapstructure:"bot_added"          validate:"required"`
	NoBots           string `mapstructure:"no_bots"            validate:"required"`
	SetGreetingUsage string `mapstructure:"setgreeting_usage"  validate:"required"`
	GreetingUpdated  string `mapstructure:"greeting_updated"   validate:"required,intverbs=1"`
	BotNotFound      string `mapstructure:"bot_not_found"      validate:"required,intverbs=1"`
	BroadcastUsage   string `mapstructure:"broadcast_usage"    validate:"required"`
	BroadcastSent    string `mapstructure:"broadcast_sent"     validate:"required,intverbs=2"`
	NoWorkers        string `mapstructure:"no_workers"         validate:"required"`
}
