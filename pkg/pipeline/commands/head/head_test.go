package head

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/collect"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

func build(options map[string]any) (*runtime.Chain, *collect.Collector, error) {
	reg := runtime.NewRegistry()
	reg.Register(Build, Name)
	sink := collect.New()
	chain, err := runtime.Build(reg, &runtime.PipelineConfig{Commands: []runtime.CommandSpec{{Name: Name, Options: options}}}, runtime.NewContext(), sink)
	return chain, sink, err
}

func push(t *testing.T, chain *runtime.Chain, n int) []bool {
	t.Helper()
	results := make([]bool, 0, n)
	for i := 0; i < n; i++ {
		ok, err := chain.Process(record.New())
		require.NoError(t, err)
		results = append(results, ok)
	}
	return results
}

func TestHead_LimitsPerSession(t *testing.T) {
	chain, sink, err := build(map[string]any{"limit": 2})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true, false, false}, push(t, chain, 4))
	assert.Equal(t, 2, sink.Len())

	require.NoError(t, chain.Notify(runtime.NewNotification(runtime.StartSession, nil)))
	assert.Equal(t, []bool{true, true, false}, push(t, chain, 3))
	assert.Equal(t, 4, sink.Len())
}

func TestHead_OtherNotificationsKeepCount(t *testing.T) {
	chain, _, err := build(map[string]any{"limit": 1})
	require.NoError(t, err)

	push(t, chain, 1)
	require.NoError(t, chain.Notify(runtime.NewNotification(runtime.CommitTransaction, nil)))
	assert.Equal(t, []bool{false}, push(t, chain, 1))
}

func TestHead_Unlimited(t *testing.T) {
	chain, _, err := build(nil)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, push(t, chain, 3))
}

func TestHead_Zero(t *testing.T) {
	chain, sink, err := build(map[string]any{"limit": 0})
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, push(t, chain, 1))
	assert.Equal(t, 0, sink.Len())
}

func TestHead_InvalidLimit(t *testing.T) {
	_, _, err := build(map[string]any{"limit": -5})
	assert.True(t, errors.Is(err, cerrors.ErrInvalidConfig))

	_, _, err = build(map[string]any{"limit": "ten"})
	assert.True(t, errors.Is(err, cerrors.ErrInvalidConfig))
}
