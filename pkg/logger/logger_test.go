package logger_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/sale-monitor/pkg/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "", want: slog.LevelInfo},
		{input: "verbose", want: slog.LevelInfo},
		// Levels are matched verbatim, config values are expected lowercase.
		{input: "DEBUG", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logger.ParseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	require.NotNil(t, logger.New("info", "text"))
}

func TestNewWithWriter_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format string
		want   []string
	}{
		{
			name:   "text",
			format: "text",
			want:   []string{"level=INFO", "msg=\"price dropped\"", "product=Widget"},
		},
		{
			name:   "json",
			format: "json",
			want:   []string{`"level":"INFO"`, `"msg":"price dropped"`, `"product":"Widget"`},
		},
		{
			name:   "unknown format falls back to text",
			format: "logfmt",
			want:   []string{"level=INFO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			l := logger.NewWithWriter(&buf, "info", tt.format)
			l.Info("price dropped", "product", "Widget")

			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		level      string
		logFunc    func(*slog.Logger)
		wantOutput bool
	}{
		{
			name:       "debug visible at debug",
			level:      "debug",
			logFunc:    func(l *slog.Logger) { l.Debug("m") },
			wantOutput: true,
		},
		{
			name:       "debug suppressed at info",
			level:      "info",
			logFunc:    func(l *slog.Logger) { l.Debug("m") },
			wantOutput: false,
		},
		{
			name:       "info suppressed at warn",
			level:      "warn",
			logFunc:    func(l *slog.Logger) { l.Info("m") },
			wantOutput: false,
		},
		{
			name:       "warn suppressed at error",
			level:      "error",
			logFunc:    func(l *slog.Logger) { l.Warn("m") },
			wantOutput: false,
		},
		{
			name:       "error always visible",
			level:      "error",
			logFunc:    func(l *slog.Logger) { l.Error("m") },
			wantOutput: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			l := logger.NewWithWriter(&buf, tt.level, "text")
			tt.logFunc(l)

			if tt.wantOutput {
				assert.NotEmpty(t, buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}
