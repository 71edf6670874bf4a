package logger

import (
	"log/slog"

	"github.com/go-co-op/gocron/v2"
)

// gocronLogger forwards gocron's internal logging to slog.
type gocronLogger struct {
	log *slog.Logger
}

// NewGocronLogger returns a gocron.Logger backed by log.
//
//nolint:ireturn // gocron.WithLogger takes the interface
func NewGocronLogger(log *slog.Logger) gocron.Logger {
	if log == nil {
		log = slog.Default()
	}
	return &gocronLogger{log: log.With("component", "gocron")}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l *gocronLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }
