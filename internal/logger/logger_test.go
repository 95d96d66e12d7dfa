package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: "info", want: zerolog.InfoLevel},
		{in: "warn", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "DEBUG", want: zerolog.DebugLevel},
		{in: "", want: zerolog.InfoLevel},
		{in: "verbose", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew_Level(t *testing.T) {
	zlog := New(Config{Level: "warn"})
	assert.Equal(t, zerolog.WarnLevel, zlog.GetLevel())

	zlog = New(Config{Level: "nonsense"})
	assert.Equal(t, zerolog.InfoLevel, zlog.GetLevel())
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")

	zlog := New(Config{Level: "info", Format: "json", File: path, MaxSize: 1})
	zlog.Info().Str("event", "started").Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"started"`)
	assert.Contains(t, string(data), `"hello"`)
}
