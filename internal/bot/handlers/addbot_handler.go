package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/botfleet/internal/logger"
	"github.com/edgard/botfleet/internal/text"
)

// NewAddBotHandler returns a handler for the /addbot command.
func NewAddBotHandler(deps HandlerDeps) bot.HandlerFunc {
	return addBotHandler{deps}.Handle
}

type addBotHandler struct {
	deps HandlerDeps
}

func (h addBotHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h addBotHandler) handle(ctx context.Context, r Replier, update *models.Update) {
	log := h.deps.Logger.With("handler", "addbot")
	if update.Message == nil {
		log.ErrorContext(ctx, "AddBot handler called with nil Message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	h.deps.Metrics.ObserveCommand("addbot")

	token, greeting := splitFirst(commandArgs(update.Message.Text))
	greeting = text.NormalizeGreeting(greeting)
	if token == "" {
		reply(ctx, log, r, chatID, h.deps.Config.Messages.AddBotUsage)
		return
	}
	if greeting == "" {
		greeting = h.deps.Config.Worker.DefaultGreeting
	}

	id, inserted, err := h.deps.Store.InsertBot(ctx, token, greeting)
	if err != nil {
		log.ErrorContext(ctx, "Failed to store bot", "error", err, "token_prefix", logger.MaskToken(token))
		reply(ctx, log, r, chatID, h.deps.Config.Messages.GeneralError)
		return
	}

	log.InfoContext(ctx, "Bot registered", "bot_id", id, "inserted", inserted, "token_prefix", logger.MaskToken(token))
	reply(ctx, log, r, chatID, h.deps.Config.Messages.BotAdded)

	// A duplicate token leaves the store unchanged, so there is nothing to restart.
	if inserted {
		h.deps.Pool.Trigger()
	}
}
