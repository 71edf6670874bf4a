// Package telegram builds the admin bot client and registers its command handlers.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/botfleet/internal/bot/handlers"
	"github.com/edgard/botfleet/internal/logger"
)

// Registrar is the handler registration surface of *bot.Bot.
type Registrar interface {
	RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, f bot.HandlerFunc, m ...bot.Middleware) string
}

// CommandSetter publishes the command menu. *bot.Bot satisfies it.
type CommandSetter interface {
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
}

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, log *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", logger.MaskToken(token))
	return b, nil
}

// applyMiddleware wraps a handler function with a slice of middleware.
// The first middleware in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RegisterHandlers registers every command handler with its middleware, in
// command order so registration is deterministic.
func RegisterHandlers(b Registrar, log *slog.Logger, registered map[string]handlers.RegisteredHandler) (int, error) {
	if b == nil {
		return 0, fmt.Errorf("bot instance cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "handler_registry")

	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		h := registered[name]
		if h.Handler == nil {
			log.Warn("Skipping registration for nil handler", "pattern", h.Pattern)
			continue
		}

		b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, applyMiddleware(h.Handler, h.Middleware))
		log.Debug("Registered handler", "pattern", h.Pattern, "middleware_count", len(h.Middleware))
		count++
	}

	log.Info("Registered Telegram handlers successfully", "count", count)
	return count, nil
}

// RegisterCommands publishes the command menu shown by Telegram clients.
func RegisterCommands(ctx context.Context, b CommandSetter, commands []models.BotCommand) error {
	if len(commands) == 0 {
		return nil
	}
	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}
