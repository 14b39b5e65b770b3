package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCronAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewCronAdapter(zap.New(core))

	adapter.Info("wake", "now", "t0")
	adapter.Error(errors.New("boom"), "panic", "stack", "...")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.DebugLevel, entries[0].Level)
	require.Equal(t, "wake", entries[0].Message)
	require.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	require.Equal(t, "boom", entries[1].ContextMap()["error"])
}
