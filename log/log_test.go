package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return NewWithHandler(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestLogger_Module(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, slog.LevelDebug).Module("evm").With("depth", 2).Info("frame opened")

	entry := decode(t, &buf)
	require.Equal(t, "evm", entry["module"])
	require.Equal(t, float64(2), entry["depth"])
	require.Equal(t, "frame opened", entry["msg"])
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		level  slog.Level
		log    func(l *Logger)
		expect bool
	}{
		{slog.LevelInfo, func(l *Logger) { l.Debug("no") }, false},
		{slog.LevelInfo, func(l *Logger) { l.Info("yes") }, true},
		{slog.LevelWarn, func(l *Logger) { l.Info("no") }, false},
		{slog.LevelWarn, func(l *Logger) { l.Error("yes") }, true},
		{slog.LevelDebug, func(l *Logger) { l.Trace("no") }, false},
	}
	for i, tc := range tests {
		var buf bytes.Buffer
		tc.log(newTestLogger(&buf, tc.level))
		require.Equalf(t, tc.expect, buf.Len() > 0, "case %d", i)
	}
}

func TestLogger_Enabled(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelInfo)
	require.True(t, l.Enabled(slog.LevelWarn))
	require.False(t, l.Enabled(slog.LevelDebug))
}

func TestLevelFromVerbosity(t *testing.T) {
	require.Greater(t, LevelFromVerbosity(0), slog.LevelError)
	require.Equal(t, slog.LevelError, LevelFromVerbosity(1))
	require.Equal(t, slog.LevelWarn, LevelFromVerbosity(2))
	require.Equal(t, slog.LevelInfo, LevelFromVerbosity(3))
	require.Equal(t, slog.LevelDebug, LevelFromVerbosity(4))
	require.Less(t, LevelFromVerbosity(5), slog.LevelDebug)
}

func TestNewTerminal(t *testing.T) {
	var buf bytes.Buffer
	NewTerminal(&buf, slog.LevelInfo).Module("evm").Info("transaction executed", "gasUsed", 21000)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "INFO"), out)
	require.Contains(t, out, "transaction executed")
	require.Contains(t, out, "gasUsed=21000")
	require.NotContains(t, out, "\x1b[")
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(newTestLogger(&buf, slog.LevelInfo))
	SetDefault(nil)
	Info("hello")
	require.Equal(t, "hello", decode(t, &buf)["msg"])
}
