// Package worker runs a single tenant bot: it approves every chat join request it
// receives and greets the new member with the bot's configured greeting.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/botfleet/internal/database"
	"github.com/edgard/botfleet/internal/logger"
	"github.com/edgard/botfleet/internal/metrics"
)

// ErrInvalidToken is returned by New when a token does not look like a bot token.
var ErrInvalidToken = errors.New("invalid bot token")

var tokenPattern = regexp.MustCompile(`^[0-9]+:[A-Za-z0-9_-]+$`)

// JoinRequestAPI is the part of the Telegram API a worker needs.
// *bot.Bot satisfies it.
type JoinRequestAPI interface {
	ApproveChatJoinRequest(ctx context.Context, params *bot.ApproveChatJoinRequestParams) (bool, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Options tune the Telegram client of every worker.
type Options struct {
	InitTimeout time.Duration
	PollTimeout time.Duration
}

// Worker is one configured tenant bot.
type Worker struct {
	id       int64
	token    string
	greeting string
	client   *bot.Bot
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// ValidateToken checks the "<digits>:<secret>" shape of a bot token.
func ValidateToken(token string) error {
	if !tokenPattern.MatchString(token) {
		return ErrInvalidToken
	}
	return nil
}

// New builds the Telegram client for cfg. The client only receives chat_join_request
// updates. Construction calls getMe, bounded by opts.InitTimeout, so a revoked or
// unknown token fails here.
func New(ctx context.Context, cfg database.BotConfig, opts Options, log *slog.Logger, m *metrics.Metrics) (*Worker, error) {
	if err := ValidateToken(cfg.Token); err != nil {
		return nil, fmt.Errorf("bot %d: %w", cfg.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &Worker{
		id:       cfg.ID,
		token:    cfg.Token,
		greeting: cfg.Greeting,
		logger:   log.With("component", "worker", "bot_id", cfg.ID, "token_prefix", logger.MaskToken(cfg.Token)),
		metrics:  m,
	}

	botOpts := []bot.Option{
		bot.WithAllowedUpdates(bot.AllowedUpdates{"chat_join_request"}),
		bot.WithDefaultHandler(w.handleUpdate),
		bot.WithErrorsHandler(func(err error) {
			w.logger.Warn("Polling error", "error", err)
		}),
		bot.WithMiddlewares(logger.Middleware(w.logger)),
	}
	if opts.InitTimeout > 0 {
		botOpts = append(botOpts, bot.WithCheckInitTimeout(opts.InitTimeout))
	}
	if opts.PollTimeout > 0 {
		botOpts = append(botOpts, bot.WithHTTPClient(opts.PollTimeout, &http.Client{
			Timeout: opts.PollTimeout + 10*time.Second,
		}))
	}

	client, err := bot.New(cfg.Token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for bot %d: %w", cfg.ID, err)
	}
	w.client = client

	return w, nil
}

// Run starts the long-polling loop in its own goroutine and returns at once.
func (w *Worker) Run(ctx context.Context) *Handle {
	w.logger.InfoContext(ctx, "Starting worker")
	return Go(ctx, w.token, w.logger, func(ctx context.Context) {
		w.client.Start(ctx)
		w.logger.Info("Worker polling loop exited")
	})
}

// handleUpdate is the client's only handler. A panic here is contained so the
// receive loop keeps going.
func (w *Worker) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(ctx, "Panic while handling update", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if update == nil || update.ChatJoinRequest == nil {
		return
	}
	_ = w.HandleJoinRequest(ctx, b, update.ChatJoinRequest)
}

// HandleJoinRequest approves req and then greets the requester. A failed approval
// is returned and nothing is sent. A failed greeting is logged only, the approval
// stands.
func (w *Worker) HandleJoinRequest(ctx context.Context, api JoinRequestAPI, req *models.ChatJoinRequest) error {
	chatID := req.Chat.ID
	userID := req.From.ID
	log := w.logger.With("chat_id", chatID, "user_id", userID)

	_, err := api.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: chatID,
		UserID: userID,
	})
	w.metrics.ObserveJoinRequest(err)
	if err != nil {
		log.ErrorContext(ctx, "Failed to approve join request", "error", err)
		return fmt.Errorf("approve join request of user %d in chat %d: %w", userID, chatID, err)
	}
	log.InfoContext(ctx, "Approved join request")

	// user_chat_id is the private chat the bot may write to after a join request.
	target := req.UserChatID
	if target == 0 {
		target = userID
	}
	_, err = api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: target,
		Text:   w.greeting,
	})
	w.metrics.ObserveGreeting(err)
	if err != nil {
		log.WarnContext(ctx, "Failed to send greeting", "error", err)
		return nil
	}

	log.DebugContext(ctx, "Greeting sent")
	return nil
}
