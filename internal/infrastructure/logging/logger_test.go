package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigResolve(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		level    zapcore.Level
		encoding string
	}{
		{"defaults", Config{}, zapcore.InfoLevel, EncodingJSON},
		{"development", Config{Development: true}, zapcore.DebugLevel, EncodingConsole},
		{"explicit level wins over development", Config{Level: "warn", Development: true}, zapcore.WarnLevel, EncodingConsole},
		{"json in development", Config{Encoding: "JSON", Development: true}, zapcore.DebugLevel, EncodingJSON},
		{"upper case level", Config{Level: "ERROR"}, zapcore.ErrorLevel, EncodingJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, encoding, err := tt.cfg.resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.encoding, encoding)
		})
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Encoding: "logfmt"})
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestNewHonoursLevel(t *testing.T) {
	logger, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	assert.True(t, NewDevelopment().Core().Enabled(zap.DebugLevel))
	assert.False(t, NewDefault().Core().Enabled(zap.DebugLevel))
}

func TestForStageNamesAndTags(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := Wrap(zap.New(core))

	logger.ForStage(StageTrunk, 3).Info("drained")
	logger.ForStage(StageNotify, 0).Info("flushed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "trunk", entries[0].LoggerName)
	assert.Equal(t, int64(3), entries[0].ContextMap()["trunk"])
	assert.Equal(t, "notify", entries[1].LoggerName)
	assert.Empty(t, entries[1].Context)
}

func TestForRunTagsOnce(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	Wrap(zap.New(core)).ForRun("run_01J").ForStage(StageEther, 1).Info("started")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ether", entries[0].LoggerName)
	assert.Equal(t, "run_01J", entries[0].ContextMap()["run_id"])
	assert.Len(t, entries[0].Context, 2)
}

func TestWrapNil(t *testing.T) {
	logger := Wrap(nil)
	assert.False(t, logger.Core().Enabled(zap.ErrorLevel))
	assert.False(t, NewNop().Core().Enabled(zap.ErrorLevel))
}
