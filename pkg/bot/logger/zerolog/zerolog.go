// Package zerolog bridges the pipeline's log events to a
// zerolog.Logger. The process builds its logger once, with console or
// JSON output and optional file rotation, and hands it to bot.Config
// through NewLogger.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/ishtar07770/telegram-codex777/pkg/bot"
)

// Logger forwards bot.Logger calls to an underlying zerolog.Logger at
// the matching level.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger wraps an already configured zerolog.Logger.
func NewLogger(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

func (l *Logger) Debug(msg string, fields ...bot.Field) { emit(l.zl.Debug(), msg, fields) }

func (l *Logger) Info(msg string, fields ...bot.Field) { emit(l.zl.Info(), msg, fields) }

func (l *Logger) Warn(msg string, fields ...bot.Field) { emit(l.zl.Warn(), msg, fields) }

func (l *Logger) Error(msg string, fields ...bot.Field) { emit(l.zl.Error(), msg, fields) }

// emit attaches the fields and writes the event. Levels below the
// logger's threshold arrive as nil events and are dropped here.
func emit(event *zerolog.Event, msg string, fields []bot.Field) {
	if event == nil {
		return
	}
	for _, f := range fields {
		event = event.Interface(f.Key, f.Value)
	}
	event.Msg(msg)
}
