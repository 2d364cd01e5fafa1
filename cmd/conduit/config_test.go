package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg, err := loadEnv()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Equal(t, 1.0, cfg.SampleRatio)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("CONDUIT_LOG_LEVEL", "debug")
	t.Setenv("CONDUIT_NATS_URL", "nats://nats:4222")
	t.Setenv("CONDUIT_TRACE_SAMPLE_RATIO", "0.25")

	cfg, err := loadEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.Equal(t, 0.25, cfg.SampleRatio)
}

func TestLoadEnv_Invalid(t *testing.T) {
	t.Setenv("CONDUIT_TRACE_SAMPLE_RATIO", "lots")
	_, err := loadEnv()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("warn")
	assert.NoError(t, err)
	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestContinueHandler_Swallows(t *testing.T) {
	var seen error
	h := continueHandler{next: runtime.ExceptionHandlerFunc(func(err error, rec *record.Record) error {
		seen = err
		return err
	})}

	boom := assert.AnError
	assert.NoError(t, h.Handle(boom, record.New()))
	assert.Equal(t, boom, seen)
}

func TestParallelism(t *testing.T) {
	a := newTestApp(t, appOptions{})
	assert.Equal(t, 3, a.parallelism(3))
	assert.Positive(t, a.parallelism(0))

	a.env.Parallel = 5
	assert.Equal(t, 5, a.parallelism(0))
	assert.Equal(t, 2, a.parallelism(2))
}

func newTestApp(t *testing.T, opts appOptions) *app {
	t.Helper()
	a, err := newApp(context.Background(), envConfig{LogLevel: "error", Environment: "test", SampleRatio: 1}, opts)
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}
