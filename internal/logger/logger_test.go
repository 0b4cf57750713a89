package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies level parsing for known and unknown inputs.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	level, ok := ParseLogLevel(" Debug ")
	require.True(t, ok)
	require.Equal(t, zapcore.DebugLevel, level)

	level, ok = ParseLogLevel("error")
	require.True(t, ok)
	require.Equal(t, zapcore.ErrorLevel, level)

	// Unknown strings fall back to info.
	level, ok = ParseLogLevel("whatever")
	require.False(t, ok)
	require.Equal(t, zapcore.InfoLevel, level)
}

// TestFromContext verifies context propagation and the global fallback.
func TestFromContext(t *testing.T) {
	t.Parallel()

	// No logger attached -> global.
	require.Same(t, Logger(), FromContext(context.Background()))

	core, logs := observer.New(zapcore.DebugLevel)
	scoped := zap.New(core).Sugar()

	ctx := ToContext(context.Background(), scoped)
	require.Same(t, scoped, FromContext(ctx))

	InfoKV(ctx, "message", "key", "value")
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "message", logs.All()[0].Message)
}

// TestWithName verifies that nested names produce dotted logger scopes.
func TestWithName(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "controller")
	ctx = WithName(ctx, "sender")

	Info(ctx, "hello")
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "controller.sender", logs.All()[0].LoggerName)
}
