package filter

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

func registry() *runtime.Registry {
	reg := runtime.NewRegistry()
	reg.Register(Build, Equals, Contains)
	reg.Register(BuildDrop, DropRecord)
	return reg
}

func build(t *testing.T, specs ...runtime.CommandSpec) (*runtime.Chain, *collect.Collector) {
	t.Helper()
	sink := collect.New()
	chain, err := runtime.Build(registry(), &runtime.PipelineConfig{Commands: specs}, runtime.NewContext(), sink)
	require.NoError(t, err)
	return chain, sink
}

func sample() *record.Record {
	rec := record.New()
	rec.PutAll("tags", "go", "etl")
	rec.Put("count", int64(3))
	rec.Put("copy", "go")
	return rec
}

func TestEquals(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		pass    bool
	}{
		{name: "exact sequence", options: map[string]any{"tags": []any{"go", "etl"}}, pass: true},
		{name: "wrong order", options: map[string]any{"tags": []any{"etl", "go"}}, pass: false},
		{name: "subset", options: map[string]any{"tags": "go"}, pass: false},
		{name: "numeric types", options: map[string]any{"count": 3}, pass: true},
		{name: "all conditions", options: map[string]any{"count": 3, "copy": "no"}, pass: false},
		{name: "reference", options: map[string]any{"copy": "@{copy}"}, pass: true},
		{name: "absent field", options: map[string]any{"missing": []any{}}, pass: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, sink := build(t, runtime.CommandSpec{Name: Equals, Options: tt.options})
			ok, err := chain.Process(sample())
			require.NoError(t, err)
			assert.Equal(t, tt.pass, ok)
			assert.Equal(t, tt.pass, sink.Len() == 1)
		})
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		pass    bool
	}{
		{name: "one of", options: map[string]any{"tags": []any{"rust", "etl"}}, pass: true},
		{name: "none", options: map[string]any{"tags": []any{"rust"}}, pass: false},
		{name: "absent field", options: map[string]any{"missing": "x"}, pass: false},
		{name: "reference", options: map[string]any{"tags": "@{copy}"}, pass: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, _ := build(t, runtime.CommandSpec{Name: Contains, Options: tt.options})
			ok, err := chain.Process(sample())
			require.NoError(t, err)
			assert.Equal(t, tt.pass, ok)
		})
	}
}

func TestDropRecord(t *testing.T) {
	chain, sink := build(t,
		runtime.CommandSpec{Name: Equals, Options: map[string]any{"copy": "go"}},
		runtime.CommandSpec{Name: DropRecord},
	)
	ok, err := chain.Process(sample())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, sink.Len())
}

func TestDropRecord_RejectsOptions(t *testing.T) {
	_, err := runtime.Build(registry(), &runtime.PipelineConfig{Commands: []runtime.CommandSpec{
		{Name: DropRecord, Options: map[string]any{"when": "always"}},
	}}, nil, nil)
	assert.True(t, errors.Is(err, cerrors.ErrInvalidConfig))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(int64(1), 1))
	assert.True(t, Equal(float32(1.5), 1.5))
	assert.True(t, Equal([]byte("x"), "x"))
	assert.True(t, Equal("x", []byte("x")))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(1, "1"))
	assert.False(t, Equal("a", "b"))
}

func TestEqualLargeIntegers(t *testing.T) {
	assert.False(t, Equal(int64(9007199254740993), int64(9007199254740992)))
	assert.False(t, Equal(int64(9007199254740993), float64(9007199254740992)))
	assert.False(t, Equal(uint64(1<<63+1), uint64(1<<63)))
	assert.False(t, Equal(int64(-1), uint64(1<<64-1)))
	assert.False(t, Equal(int64(2), 2.5))
	assert.True(t, Equal(int64(9007199254740993), uint64(9007199254740993)))
	assert.True(t, Equal(uint64(1<<63), float64(1<<63)))
	assert.True(t, Equal(int32(-4), -4.0))
}

func TestEqualsDropsNeighbouringLongIDs(t *testing.T) {
	chain, sink := build(t, runtime.CommandSpec{Name: Equals, Options: map[string]any{"id": int64(9007199254740992)}})

	rec := record.New()
	rec.Put("id", int64(9007199254740993))
	ok, err := chain.Process(rec)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, sink.Len())
}
