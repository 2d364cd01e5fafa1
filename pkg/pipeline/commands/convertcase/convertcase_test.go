package convertcase

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

func TestConvertCase(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		in      []any
		want    []any
	}{
		{
			name:    "upper",
			options: map[string]any{"fields": "name", "case": "upper"},
			in:      []any{"hello world", 7},
			want:    []any{"HELLO WORLD", 7},
		},
		{
			name:    "lower default",
			options: map[string]any{"fields": []any{"name"}},
			in:      []any{"MiXeD"},
			want:    []any{"mixed"},
		},
		{
			name:    "title",
			options: map[string]any{"fields": "name", "case": "title"},
			in:      []any{"the quick fox"},
			want:    []any{"The Quick Fox"},
		},
		{
			name:    "turkish upper",
			options: map[string]any{"fields": "name", "case": "upper", "language": "tr"},
			in:      []any{"istanbul"},
			want:    []any{"İSTANBUL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, sink, err := build(tt.options)
			require.NoError(t, err)

			in := record.New()
			in.PutAll("name", tt.in...)
			in.Put("other", "untouched")

			ok, err := chain.Process(in)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, sink.First().Get("name"))
			assert.Equal(t, []any{"untouched"}, sink.First().Get("other"))
		})
	}
}

func TestConvertCase_BuildErrors(t *testing.T) {
	for name, options := range map[string]map[string]any{
		"no fields":    {"case": "upper"},
		"bad case":     {"fields": "a", "case": "snake"},
		"bad language": {"fields": "a", "language": "not a tag!"},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := build(options)
			assert.True(t, errors.Is(err, cerrors.ErrInvalidConfig), "got %v", err)
		})
	}
}
