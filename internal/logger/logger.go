// Package logger provides structured logging for the supervisor.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewLogger creates a new slog Logger writing to stdout with the given level and format.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	return newLogger(os.Stdout, levelStr, jsonOutput)
}

func newLogger(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaskToken shortens a bot token so it can be logged or shown to the operator.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

// Middleware creates a logging middleware for a Telegram bot.
// It logs every update with its type, chat and sender, and the handling duration.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With(UpdateAttrs(update)...)
			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.DebugContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

// UpdateAttrs describes an update as slog key/value pairs.
func UpdateAttrs(update *models.Update) []any {
	if update == nil {
		return []any{"update_type", "nil"}
	}

	attrs := []any{"update_id", update.ID}
	switch {
	case update.Message != nil:
		attrs = append(attrs,
			"update_type", "message",
			"message_id", update.Message.ID,
			"chat_id", update.Message.Chat.ID,
			"text_preview", truncateString(redactText(update.Message.Text), 50),
		)
		if update.Message.From != nil {
			attrs = append(attrs, "user_id", update.Message.From.ID)
		}
	case update.ChatJoinRequest != nil:
		attrs = append(attrs,
			"update_type", "chat_join_request",
			"chat_id", update.ChatJoinRequest.Chat.ID,
			"user_id", update.ChatJoinRequest.From.ID,
		)
	default:
		attrs = append(attrs, "update_type", "other")
	}
	return attrs
}

// secretCommands carry a bot token as their first argument.
var secretCommands = map[string]bool{"/addbot": true}

// redactText masks the token argument of commands in secretCommands.
func redactText(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return text
	}
	command, _, _ := strings.Cut(fields[0], "@")
	if !secretCommands[command] {
		return text
	}
	fields[1] = MaskToken(fields[1])
	return strings.Join(fields, " ")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
