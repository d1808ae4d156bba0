package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), in)
	}
}

func TestWithRequestID_AddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New(&buf, "debug"))
	ctx = WithRequestID(ctx, "req-123")

	Info(ctx, "hello", "k", "v")

	out := buf.String()
	require.Contains(t, out, `"msg":"hello"`)
	require.Contains(t, out, `"request_id":"req-123"`)
	require.Contains(t, out, `"k":"v"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New(&buf, "warn"))

	Debug(ctx, "dbg")
	Info(ctx, "inf")
	Warn(ctx, "wrn")
	Error(ctx, "err")

	out := buf.String()
	require.NotContains(t, out, "dbg")
	require.NotContains(t, out, "inf")
	require.Contains(t, out, "wrn")
	require.Contains(t, out, "err")
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))
}
