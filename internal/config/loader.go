package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envAliases binds keys to extra environment variable names besides the BOT_* form.
var envAliases = map[string][]string{
	"telegram.token":    {"BOT_TELEGRAM_TOKEN", "ADMIN_BOT_TOKEN"},
	"telegram.admin_id": {"BOT_TELEGRAM_ADMIN_ID", "ADMIN_USER_ID"},
	"http.port":         {"BOT_HTTP_PORT", "PORT"},
	"database.path":     {"BOT_DATABASE_PATH", "DATABASE_PATH"},
}

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. the config file at path (optional, missing file is fine)
// 3. a .env file in the working directory (optional)
// 4. environment variables
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env file: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)

	if err := readConfigFile(v, path); err != nil {
		return nil, fmt.Errorf("%w: failed to load config file: %v", ErrConfiguration, err)
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("%w: failed to bind env for %s: %v", ErrConfiguration, key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"config_file", v.ConfigFileUsed(),
		"log_level", cfg.Logger.Level,
		"db_path", cfg.Database.Path,
		"http_port", cfg.HTTP.Port)

	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("Config file not found, using defaults and environment", "path", path)
			return nil
		}
		return err
	}
	return nil
}

// setDefaults sets default values for optional configuration parameters.
// Every key needs a default (even an empty one) so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("telegram.poll_timeout", DefaultTelegramPollTimeout)
	v.SetDefault("telegram.request_timeout", DefaultTelegramRequestTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("worker.default_greeting", DefaultWorkerGreeting)
	v.SetDefault("worker.init_timeout", DefaultWorkerInitTimeout)
	v.SetDefault("worker.shutdown_timeout", DefaultWorkerShutdownTimeout)
	v.SetDefault("worker.sync_timeout", DefaultWorkerSyncTimeout)
	v.SetDefault("worker.start_concurrency", DefaultWorkerStartConcurrency)
	v.SetDefault("worker.poll_timeout", DefaultWorkerPollTimeout)

	v.SetDefault("broadcast.prefix", DefaultBroadcastPrefix)
	v.SetDefault("broadcast.timeout", DefaultBroadcastTimeout)
	v.SetDefault("broadcast.concurrency", DefaultBroadcastConcurrency)

	v.SetDefault("http.port", DefaultHTTPPort)
	v.SetDefault("http.metrics_enabled", DefaultHTTPMetricsEnabled)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.not_authorized", DefaultMessages.NotAuthorized)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("messages.addbot_usage", DefaultMessages.AddBotUsage)
	v.SetDefault("messages.bot_added", DefaultMessages.BotAdded)
	v.SetDefault("messages.no_bots", DefaultMessages.NoBots)
	v.SetDefault("messages.setgreeting_usage", DefaultMessages.SetGreetingUsage)
	v.SetDefault("messages.greeting_updated", DefaultMessages.GreetingUpdated)
	v.SetDefault("messages.bot_not_found", DefaultMessages.BotNotFound)
	v.SetDefault("messages.broadcast_usage", DefaultMessages.BroadcastUsage)
	v.SetDefault("messages.broadcast_sent", DefaultMessages.BroadcastSent)
	v.SetDefault("messages.no_workers", DefaultMessages.NoWorkers)
}
