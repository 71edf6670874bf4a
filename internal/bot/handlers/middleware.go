// Package handlers contains the admin bot's command handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly creates a middleware that lets only the configured operator through.
// Anyone else gets the "not allowed" reply and the command is dropped.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if !authorize(ctx, deps, bot, update) {
				return
			}
			next(ctx, bot, update)
		}
	}
}

// authorize reports whether update comes from the operator, replying otherwise.
func authorize(ctx context.Context, deps HandlerDeps, r Replier, update *models.Update) bool {
	if update.Message == nil {
		return false
	}

	var userID int64
	if update.Message.From != nil {
		userID = update.Message.From.ID
	}
	if deps.Config.IsAdmin(userID) {
		return true
	}

	chatID := update.Message.Chat.ID
	log := deps.Logger.With("middleware", "AdminOnly")
	log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)

	reply(ctx, log, r, chatID, deps.Config.Messages.NotAuthorized)
	return false
}

// reply sends text to chatID and logs a failure.
func reply(ctx context.Context, log *slog.Logger, r Replier, chatID int64, text string) {
	if _, err := r.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID)
	}
}
