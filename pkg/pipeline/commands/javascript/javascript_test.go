package javascript

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

func order(price, qty int64) *record.Record {
	rec := record.New()
	rec.Put("price", price)
	rec.Put("qty", qty)
	rec.PutAll("tags", "a", "b")
	return rec
}

func TestJS_FilterAndMutate(t *testing.T) {
	chain, sink, err := build(map[string]any{
		"script": `
			record.total = [record.price[0] * record.qty[0]];
			record.tags.push("c");
			delete record.qty;
			return record.total[0] > 100;
		`,
	})
	require.NoError(t, err)

	ok, err := chain.Process(order(50, 3))
	require.NoError(t, err)
	assert.True(t, ok)
	require.Equal(t, 1, sink.Len())

	out := sink.First()
	assert.Equal(t, []any{int64(150)}, out.Get("total"))
	assert.Equal(t, []any{"a", "b", "c"}, out.Get("tags"))
	assert.False(t, out.Has("qty"))
	assert.Equal(t, []any{int64(50)}, out.Get("price"))

	ok, err = chain.Process(order(10, 3))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, sink.Len())
}

func TestJS_ScalarAssignmentAndNull(t *testing.T) {
	chain, sink, err := build(map[string]any{
		"script": `record.single = "x"; record.tags = null; return true;`,
	})
	require.NoError(t, err)

	_, err = chain.Process(order(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, sink.First().Get("single"))
	assert.False(t, sink.First().Has("tags"))
}

func TestJS_SandboxedGlobals(t *testing.T) {
	chain, _, err := build(map[string]any{
		"script": `return typeof require === "undefined" && typeof process === "undefined";`,
	})
	require.NoError(t, err)

	ok, err := chain.Process(record.New())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJS_RuntimeErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "throws", script: `throw new Error("nope");`},
		{name: "no return", script: `record.x = [1];`},
		{name: "non boolean", script: `return "yes";`},
		{name: "timeout", script: `while (true) {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, _, err := build(map[string]any{"script": tt.script, "timeout": "50ms"})
			require.NoError(t, err)

			ok, err := chain.Process(record.New())
			assert.False(t, ok)
			require.Error(t, err)
			assert.Equal(t, cerrors.CodeCommandFailed, cerrors.CodeOf(err))
		})
	}
}

func TestJS_RecoversAfterTimeout(t *testing.T) {
	chain, _, err := build(map[string]any{
		"script":  `if (record.loop) { while (true) {} } return true;`,
		"timeout": "50ms",
	})
	require.NoError(t, err)

	looping := record.New()
	looping.Put("loop", true)
	_, err = chain.Process(looping)
	require.Error(t, err)

	ok, err := chain.Process(record.New())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJS_BuildErrors(t *testing.T) {
	for name, options := range map[string]map[string]any{
		"missing script": {},
		"syntax error":   {"script": "return (;"},
		"bad timeout":    {"script": "return true;", "timeout": "soon"},
		"zero timeout":   {"script": "return true;", "timeout": "0s"},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := build(options)
			assert.True(t, errors.Is(err, cerrors.ErrInvalidConfig), "got %v", err)
		})
	}
}
