package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/botfleet/internal/config"
	"github.com/edgard/botfleet/internal/database"
	"github.com/edgard/botfleet/internal/metrics"
	"github.com/edgard/botfleet/internal/pool"
)

// Replier sends a text message. *bot.Bot satisfies it.
type Replier interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// WorkerPool is the part of the pool manager the admin commands use.
type WorkerPool interface {
	Trigger()
	Active() []pool.Status
}

// SenderFactory builds a client that sends messages as the bot with the given token.
type SenderFactory func(token string) (Replier, error)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Pool      WorkerPool
	NewSender SenderFactory
	Metrics   *metrics.Metrics
}

// NewSender returns a client for token that skips the getMe round trip, since
// broadcast only ever sends.
func NewSender(token string) (Replier, error) {
	return bot.New(token, bot.WithSkipGetMe())
}
