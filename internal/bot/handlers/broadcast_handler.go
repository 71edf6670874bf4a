package handlers

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/botfleet/internal/logger"
)

// NewBroadcastHandler returns a handler for the /broadcast command.
func NewBroadcastHandler(deps HandlerDeps) bot.HandlerFunc {
	return broadcastHandler{deps}.Handle
}

type broadcastHandler struct {
	deps HandlerDeps
}

func (h broadcastHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

// handle sends the prefixed text to the operator through every stored bot.
// One bot failing never stops the others; the reply counts the successes.
func (h broadcastHandler) handle(ctx context.Context, r Replier, update *models.Update) {
	log := h.deps.Logger.With("handler", "broadcast")
	if update.Message == nil {
		log.ErrorContext(ctx, "Broadcast handler called with nil Message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID
	h.deps.Metrics.ObserveCommand("broadcast")

	text := commandArgs(update.Message.Text)
	if text == "" {
		reply(ctx, log, r, chatID, h.deps.Config.Messages.BroadcastUsage)
		return
	}

	bots, err := h.deps.Store.ListBots(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list bots for broadcast", "error", err)
		reply(ctx, log, r, chatID, h.deps.Config.Messages.GeneralError)
		return
	}
	if len(bots) == 0 {
		reply(ctx, log, r, chatID, h.deps.Config.Messages.NoBots)
		return
	}

	var (
		sendCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout := h.deps.Config.Broadcast.Timeout; timeout > 0 {
		sendCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		sendCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	message := h.deps.Config.Broadcast.Prefix + text
	target := h.deps.Config.Telegram.AdminUserID

	var sent atomic.Int64
	var g errgroup.Group
	if limit := h.deps.Config.Broadcast.Concurrency; limit > 0 {
		g.SetLimit(limit)
	}
	for _, cfg := range bots {
		g.Go(func() error {
			botLog := log.With("bot_id", cfg.ID, "token_prefix", logger.MaskToken(cfg.Token))

			sender, err := h.deps.NewSender(cfg.Token)
			if err != nil {
				h.deps.Metrics.ObserveBroadcastSend(err)
				botLog.WarnContext(ctx, "Failed to create broadcast client", "error", err)
				return nil
			}

			_, err = sender.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: target, Text: message})
			h.deps.Metrics.ObserveBroadcastSend(err)
			if err != nil {
				botLog.WarnContext(ctx, "Broadcast delivery failed", "error", err)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	log.InfoContext(ctx, "Broadcast finished", "sent", sent.Load(), "total", len(bots))
	reply(ctx, log, r, chatID, fmt.Sprintf(h.deps.Config.Messages.BroadcastSent, sent.Load(), len(bots)))
}
