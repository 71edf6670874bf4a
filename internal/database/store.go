package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for bot configuration persistence.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// InsertBot adds a bot record. A token that already exists is left untouched:
	// the existing id is returned with inserted=false and a nil error.
	InsertBot(ctx context.Context, token, greeting string) (id int64, inserted bool, err error)

	// UpdateGreeting replaces the greeting of the bot with the given id.
	// Returns ErrBotNotFound when no such bot exists.
	UpdateGreeting(ctx context.Context, id int64, greeting string) error

	// GetBot retrieves a single bot by id. Returns ErrBotNotFound when missing.
	GetBot(ctx context.Context, id int64) (*BotConfig, error)

	// ListBots returns every bot ordered by id.
	ListBots(ctx context.Context) ([]BotConfig, error)

	// DeleteBot removes the bot with the given id. Returns ErrBotNotFound when missing.
	DeleteBot(ctx context.Context, id int64) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertBot uses INSERT OR IGNORE so a duplicate token is a silent no-op.
func (s *sqlxStore) InsertBot(ctx context.Context, token, greeting string) (int64, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false, fmt.Errorf("bot token cannot be empty")
	}
	if strings.TrimSpace(greeting) == "" {
		return 0, false, fmt.Errorf("bot greeting cannot be empty")
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for inserting bot", "error", err)
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO bots (token, greeting, created_at, updated_at) VALUES (?, ?, ?, ?);`,
		token, greeting, now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error inserting bot", "error", err)
		return 0, false, fmt.Errorf("failed to insert bot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	var id int64
	inserted := affected == 1
	if inserted {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("failed to read inserted bot id: %w", err)
		}
	} else if err := tx.GetContext(ctx, &id, `SELECT id FROM bots WHERE token = ?;`, token); err != nil {
		return 0, false, fmt.Errorf("failed to look up existing bot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return 0, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	if inserted {
		s.logger.InfoContext(ctx, "Bot inserted", "bot_id", id)
	} else {
		s.logger.InfoContext(ctx, "Bot token already registered, insert ignored", "bot_id", id)
	}
	return id, inserted, nil
}

// UpdateGreeting replaces the greeting and bumps updated_at.
func (s *sqlxStore) UpdateGreeting(ctx context.Context, id int64, greeting string) error {
	if id <= 0 {
		return fmt.Errorf("bot id must be positive")
	}
	if strings.TrimSpace(greeting) == "" {
		return fmt.Errorf("bot greeting cannot be empty")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE bots SET greeting = ?, updated_at = ? WHERE id = ?;`,
		greeting, time.Now().UTC(), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating bot greeting", "bot_id", id, "error", err)
		return fmt.Errorf("failed to update greeting for bot %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update greeting for bot %d: %w", id, ErrBotNotFound)
	}

	s.logger.InfoContext(ctx, "Bot greeting updated", "bot_id", id)
	return nil
}

// GetBot retrieves a single bot by id.
func (s *sqlxStore) GetBot(ctx context.Context, id int64) (*BotConfig, error) {
	var cfg BotConfig
	err := s.db.GetContext(ctx, &cfg,
		`SELECT id, token, greeting, created_at, updated_at FROM bots WHERE id = ?;`, id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("get bot %d: %w", id, ErrBotNotFound)

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching bot", "bot_id", id, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting bot", "bot_id", id, "error", err)
		return nil, fmt.Errorf("failed to get bot %d: %w", id, err)
	}

	return &cfg, nil
}

// ListBots returns every bot ordered by id, so callers see a deterministic sequence.
func (s *sqlxStore) ListBots(ctx context.Context) ([]BotConfig, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	bots := []BotConfig{}
	err := s.db.SelectContext(ctx, &bots,
		`SELECT id, token, greeting, created_at, updated_at FROM bots ORDER BY id ASC;`)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while listing bots", "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error listing bots", "error", err)
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed bots", "count", len(bots))
	return bots, nil
}

// DeleteBot removes the bot with the given id.
func (s *sqlxStore) DeleteBot(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = ?;`, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting bot", "bot_id", id, "error", err)
		return fmt.Errorf("failed to delete bot %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete bot %d: %w", id, ErrBotNotFound)
	}

	s.logger.InfoContext(ctx, "Bot deleted", "bot_id", id)
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
