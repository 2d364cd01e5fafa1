package logcmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/collect"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

func build(level zapcore.Level, name string, options map[string]any) (*runtime.Chain, *collect.Collector, *observer.ObservedLogs, error) {
	core, logs := observer.New(level)
	reg := runtime.NewRegistry()
	reg.Register(Build, Names...)
	sink := collect.New()
	mctx := runtime.NewContext(runtime.WithLogger(zap.New(core)))
	chain, err := runtime.Build(reg, &runtime.PipelineConfig{Commands: []runtime.CommandSpec{{Name: name, Options: options}}}, mctx, sink)
	return chain, sink, logs, err
}

func TestLog_FormatsArguments(t *testing.T) {
	chain, sink, logs, err := build(zapcore.DebugLevel, LogInfo, map[string]any{
		"format": "id {} tags {} record {}",
		"args":   []any{"@{id}", "@{tags}", "@{}"},
	})
	require.NoError(t, err)

	rec := record.New()
	rec.Put("id", 7)
	rec.PutAll("tags", "a", "b")

	ok, err := chain.Process(rec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, sink.Len())

	entries := logs.FilterLoggerName(LogInfo).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "id 7 tags [a b] record {id=[7], tags=[a b]}", entries[0].Message)
}

func TestLog_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level zapcore.Level
	}{
		{LogTrace, zapcore.DebugLevel},
		{LogDebug, zapcore.DebugLevel},
		{LogInfo, zapcore.InfoLevel},
		{LogWarn, zapcore.WarnLevel},
		{LogError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, _, logs, err := build(zapcore.DebugLevel, tt.name, map[string]any{"format": "hello"})
			require.NoError(t, err)
			_, err = chain.Process(record.New())
			require.NoError(t, err)

			entries := logs.FilterLoggerName(tt.name).All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, "hello", entries[0].Message)
		})
	}
}

func TestLog_DisabledLevelStillForwards(t *testing.T) {
	chain, sink, logs, err := build(zapcore.WarnLevel, LogDebug, map[string]any{"format": "x {}", "args": "literal"})
	require.NoError(t, err)

	ok, err := chain.Process(record.New())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, sink.Len())
	assert.Equal(t, 0, logs.Len())
}

func TestLog_PlaceholderMismatch(t *testing.T) {
	_, _, _, err := build(zapcore.DebugLevel, LogInfo, map[string]any{"format": "{} {}", "args": []any{"@{a}"}})
	assert.True(t, errors.Is(err, cerrors.ErrInvalidConfig))
}
