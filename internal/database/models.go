package database

import (
	"errors"
	"time"
)

// ErrBotNotFound is returned when no bot record matches the requested id.
var ErrBotNotFound = errors.New("bot not found")

// BotConfig is the persisted definition of one worker bot.
// Token is unique across records; Greeting is the only field that changes after creation.
type BotConfig struct {
	ID        int64     `db:"id"`
	Token     string    `db:"token"`
	Greeting  string    `db:"greeting"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
