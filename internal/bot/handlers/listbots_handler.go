package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/botfleet/internal/database"
)

// NewListBotsHandler returns a handler for the /listbots command.
func NewListBotsHandler(deps HandlerDeps) bot.HandlerFunc {
	return listBotsHandler{deps}.Handle
}

type listBotsHandler struct {
	deps HandlerDeps
}

func (h listBotsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h listBotsHandler) handle(ctx context.Context, r Replier, update *models.Update) {
	log := h.deps.Logger.With("handler", "listbots")
	if update.Message == nil {
		log.ErrorContext(ctx, "ListBots handler called with nil Message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	h.deps.Metrics.ObserveCommand("listbots")

	bots, err := h.deps.Store.ListBots(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list bots", "error", err)
		reply(ctx, log, r, chatID, h.deps.Config.Messages.GeneralError)
		return
	}
	if len(bots) == 0 {
		reply(ctx, log, r, chatID, h.deps.Config.Messages.NoBots)
		return
	}

	reply(ctx, log, r, chatID, formatBotList(bots))
}

func formatBotList(bots []database.BotConfig) string {
	var sb strings.Builder
	for i, cfg := range bots {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "ID: %d | Greeting: %s", cfg.ID, cfg.Greeting)
		if !cfg.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, " | added %s", humanize.Time(cfg.CreatedAt))
		}
	}
	return sb.String()
}
