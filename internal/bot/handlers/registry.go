package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// RegisteredHandler represents a command handler with its description and middleware.
// It encapsulates all information needed to register and document a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Description string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands initializes and returns a map of all available admin commands.
// Every command is restricted to the operator.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	command := func(pattern, description string, h tgbot.HandlerFunc) RegisteredHandler {
		return RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     pattern,
			Description: description,
			Handler:     h,
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  adminMiddleware,
		}
	}

	return map[string]RegisteredHandler{
		"/start":       command("start", "Show the command overview", NewStartHandler(deps)),
		"/help":        command("help", "Show the command overview", NewStartHandler(deps)),
		"/addbot":      command("addbot", "Register a worker bot: <token> [greeting]", NewAddBotHandler(deps)),
		"/listbots":    command("listbots", "List registered worker bots", NewListBotsHandler(deps)),
		"/setgreeting": command("setgreeting", "Change a bot's greeting: <id> <text>", NewSetGreetingHandler(deps)),
		"/broadcast":   command("broadcast", "Message the operator through every bot: <text>", NewBroadcastHandler(deps)),
		"/status":      command("status", "Show running workers", NewStatusHandler(deps)),
	}
}

// BotCommands returns the command menu for registered, sorted by command name.
func BotCommands(registered map[string]RegisteredHandler) []models.BotCommand {
	cmds := make([]models.BotCommand, 0, len(registered))
	for _, h := range registered {
		if h.Description == "" {
			continue
		}
		cmds = append(cmds, models.BotCommand{Command: h.Pattern, Description: h.Description})
	}
	sortCommands(cmds)
	return cmds
}
