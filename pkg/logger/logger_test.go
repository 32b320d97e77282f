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
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestInitEncodings(t *testing.T) {
	restore := Replace(L())
	defer restore()

	require.NoError(t, Init("debug", "console"))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("info", "json"))
	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, Init("info", "xml"))
}

func TestReplaceCapturesLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	L().Sugar().Infow("captured", "k", "v")
	restore()

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "captured", logs.All()[0].Message)
}
