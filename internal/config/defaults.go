package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultDBPath = "bots.db"

	DefaultTelegramPollTimeout    = time.Minute
	DefaultTelegramRequestTimeout = 30 * time.Second

	DefaultWorkerGreeting         = "Hello! Welcome to the channel."
	DefaultWorkerInitTimeout      = 15 * time.Second
	DefaultWorkerShutdownTimeout  = 10 * time.Second // bounded wait before a worker is abandoned
	DefaultWorkerSyncTimeout      = 2 * time.Minute
	DefaultWorkerStartConcurrency = 8
	DefaultWorkerPollTimeout      = time.Minute

	DefaultBroadcastPrefix      = "[Broadcast] "
	DefaultBroadcastTimeout     = time.Minute
	DefaultBroadcastConcurrency = 8

	DefaultHTTPPort           = 10000
	DefaultHTTPMetricsEnabled = true
)

// DefaultTasks schedules use the six-field cron format (seconds first).
var DefaultTasks = map[string]TaskConfig{
	"store_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	"worker_watchdog":   {Enabled: true, Schedule: "30 * * * * *"},
}

// DefaultMessages are the operator-facing replies of the admin bot.
var DefaultMessages = MessagesConfig{
	Welcome: "✅ Manager bot ready.\n\n" +
		"Commands:\n" +
		"/addbot <token> [greeting]\n" +
		"/listbots\n" +
		"/setgreeting <id> <text>\n" +
		"/broadcast <msg>\n" +
		"/status",
	NotAuthorized:    "⛔ You are not allowed.",
	GeneralError:     "❌ An error occurred. Please try again later.",
	AddBotUsage:      "Usage: /addbot <token> [greeting]",
	BotAdded:         "🤖 Bot added. Restarting workers...",
	NoBots:           "No bots added yet.",
	SetGreetingUsage: "Usage: /setgreeting <id> <text>",
	GreetingUpdated:  "✅ Greeting updated for bot %d",
	BotNotFound:      "No bot with ID %d.",
	BroadcastUsage:   "Usage: /broadcast <message>",
	BroadcastSent:    "📢 Broadcast sent through %d of %d bots.",
	NoWorkers:        "No workers running.",
}
