package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestInitReplacesGlobalLogger(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Init("error", "production"))
	assert.NotSame(t, prev, Get())
	assert.False(t, Get().Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Desugar().Core().Enabled(zapcore.ErrorLevel))
}

func TestWithCarriesFields(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	core, logs := observer.New(zapcore.InfoLevel)
	Set(&Logger{SugaredLogger: zap.New(core).Sugar()})

	Get().With("symbol", "TSLA").Named("analysis").Infow("run complete", "patterns", 3)
	Infof("plain %d", 1)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "analysis", entries[0].LoggerName)
	assert.Equal(t, "TSLA", entries[0].ContextMap()["symbol"])
	assert.EqualValues(t, 3, entries[0].ContextMap()["patterns"])
	assert.Equal(t, "plain 1", entries[1].Message)
}
