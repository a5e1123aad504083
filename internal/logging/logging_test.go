package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	logger, err := New("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Desugar().Core().Enabled(zapcore.WarnLevel))

	_, err = New("bogus", true)
	assert.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := With(context.Background(), zap.New(core).Sugar())

	ctx = Track(ctx, "session", "abc")
	Infow(ctx, "Waypoint appended", "position", 2)
	Errorw(ctx, "Refresh failed", "error", "boom")
	Debugw(ctx, "debug line")
	Warnw(ctx, "warn line")

	require.Equal(t, 4, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Waypoint appended", entry.Message)
	assert.Equal(t, "abc", entry.ContextMap()["session"])
	assert.Equal(t, int64(2), entry.ContextMap()["position"])
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestFromContext_Fallback(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	// must not panic without a logger
	Infow(context.Background(), "dropped")
}
