package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/botfleet/internal/logger"
	"github.com/edgard/botfleet/internal/pool"
)

// NewStatusHandler returns a handler for the /status command.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return statusHandler{deps}.Handle
}

type statusHandler struct {
	deps HandlerDeps
}

func (h statusHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h statusHandler) handle(ctx context.Context, r Replier, update *models.Update) {
	log := h.deps.Logger.With("handler", "status")
	if update.Message == nil {
		log.ErrorContext(ctx, "Status handler called with nil Message", "update_id", update.ID)
		return
	}
	h.deps.Metrics.ObserveCommand("status")

	active := h.deps.Pool.Active()
	if len(active) == 0 {
		reply(ctx, log, r, update.Message.Chat.ID, h.deps.Config.Messages.NoWorkers)
		return
	}
	reply(ctx, log, r, update.Message.Chat.ID, formatStatus(active))
}

func formatStatus(active []pool.Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Workers: %d", len(active))
	for _, s := range active {
		state := "running"
		if !s.Running {
			state = "exited"
		}
		fmt.Fprintf(&sb, "\n%s | %s | started %s", logger.MaskToken(s.Token), state, humanize.Time(s.StartedAt))
	}
	return sb.String()
}
