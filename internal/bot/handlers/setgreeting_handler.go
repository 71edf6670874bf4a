package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/botfleet/internal/database"
	"github.com/edgard/botfleet/internal/text"
)

// NewSetGreetingHandler returns a handler for the /setgreeting command.
func NewSetGreetingHandler(deps HandlerDeps) bot.HandlerFunc {
	return setGreetingHandler{deps}.Handle
}

type setGreetingHandler struct {
	deps HandlerDeps
}

func (h setGreetingHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h setGreetingHandler) handle(ctx context.Context, r Replier, update *models.Update) {
	log := h.deps.Logger.With("handler", "setgreeting")
	if update.Message == nil {
		log.ErrorContext(ctx, "SetGreeting handler called with nil Message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	h.deps.Metrics.ObserveCommand("setgreeting")

	idStr, greeting := splitFirst(commandArgs(update.Message.Text))
	greeting = text.NormalizeGreeting(greeting)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 || greeting == "" {
		reply(ctx, log, r, chatID, h.deps.Config.Messages.SetGreetingUsage)
		return
	}

	err = h.deps.Store.UpdateGreeting(ctx, id, greeting)
	switch {
	case errors.Is(err, database.ErrBotNotFound):
		log.InfoContext(ctx, "Greeting update for unknown bot", "bot_id", id)
		reply(ctx, log, r, chatID, fmt.Sprintf(h.deps.Config.Messages.BotNotFound, id))
		return
	case err != nil:
		log.ErrorContext(ctx, "Failed to update greeting", "bot_id", id, "error", err)
		reply(ctx, log, r, chatID, h.deps.Config.Messages.GeneralError)
		return
	}

	reply(ctx, log, r, chatID, fmt.Sprintf(h.deps.Config.Messages.GreetingUpdated, id))
	h.deps.Pool.Trigger()
}
