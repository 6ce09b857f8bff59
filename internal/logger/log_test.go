package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLevels(t *testing.T) {
	t.Cleanup(func() { _ = Init("info", false) })

	require.NoError(t, Init("debug", false))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("", false))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, L().Core().Enabled(zapcore.InfoLevel))

	require.NoError(t, Init("error", true))
	assert.False(t, L().Core().Enabled(zapcore.WarnLevel))
}

func TestInitBadLevel(t *testing.T) {
	assert.Error(t, Init("loud", false))
	assert.NotNil(t, L())
}

func TestHelpersWriteToCurrentLogger(t *testing.T) {
	prev := L()
	t.Cleanup(func() { current.Store(prev) })

	core, logs := observer.New(zapcore.DebugLevel)
	current.Store(zap.New(core))

	Debugz("d", zap.Int("n", 1))
	Infoz("i")
	Warnz("w")
	Errorz("e")
	Infow("iw", "path", "a.log")
	Warnw("ww", "excluded", 2)

	entries := logs.AllUntimed()
	require.Len(t, entries, 6)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "iw", entries[4].Message)
	assert.Equal(t, "a.log", entries[4].ContextMap()["path"])
	assert.Equal(t, zapcore.WarnLevel, entries[5].Level)
	assert.EqualValues(t, 2, entries[5].ContextMap()["excluded"])
}
