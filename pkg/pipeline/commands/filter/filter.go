// Package filter implements the equals, contains and dropRecord commands.
// Filters drop a record by returning false; they never return an error.
package filter

import (
	"math"
	"reflect"

	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/internal/fieldref"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Command names.
const (
	Equals     = "equals"
	Contains   = "contains"
	DropRecord = "dropRecord"
)

type condition struct {
	field    string
	expected []any
}

// Command passes records whose fields satisfy every condition.
type Command struct {
	runtime.BaseCommand
	conditions []condition
	match      func(actual, expected []any) bool
}

// Build creates an equals or contains filter, following the declared name.
// Each option key names a field; its value is a literal, a list of literals
// or an `@{field}` reference.
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	match := equalSequences
	if cfg.Name() == Contains {
		match = sharesValue
	}

	var conditions []condition
	for _, field := range cfg.Keys() {
		v, _ := cfg.Raw(field)
		expected, ok := v.([]any)
		if !ok {
			expected = []any{v}
		}
		conditions = append(conditions, condition{field: field, expected: expected})
	}

	return &Command{
		BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx),
		conditions:  conditions,
		match:       match,
	}, nil
}

// Process forwards rec if all conditions hold and drops it otherwise.
func (c *Command) Process(rec *record.Record) (bool, error) {
	for _, cond := range c.conditions {
		var expected []any
		for _, v := range cond.expected {
			expected = append(expected, fieldref.Resolve(rec, v)...)
		}
		if !c.match(rec.Get(cond.field), expected) {
			c.Logger().Debug("record dropped")
			return false, nil
		}
	}
	return c.ProcessChild(rec)
}

// equalSequences compares values pairwise in order.
func equalSequences(actual, expected []any) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if !Equal(actual[i], expected[i]) {
			return false
		}
	}
	return true
}

// sharesValue reports whether actual holds at least one expected value.
func sharesValue(actual, expected []any) bool {
	for _, a := range actual {
		for _, e := range expected {
			if Equal(a, e) {
				return true
			}
		}
	}
	return false
}

// Equal compares two values, treating numbers of different Go types as equal
// when they denote the same quantity and []byte as equal to the same string.
// Integers compare exactly; a float equals an integer only when it is integral.
func Equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	if na, ok := toNumber(a); ok {
		if nb, ok := toNumber(b); ok {
			return na.equal(nb)
		}
		return false
	}
	switch x := a.(type) {
	case []byte:
		if s, ok := b.(string); ok {
			return string(x) == s
		}
	case string:
		if y, ok := b.([]byte); ok {
			return x == string(y)
		}
	}
	return false
}

type numberKind int

const (
	signed numberKind = iota
	unsigned
	floating
)

type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func (n number) equal(o number) bool {
	if n.kind > o.kind {
		n, o = o, n
	}
	switch {
	case n.kind == signed && o.kind == signed:
		return n.i == o.i
	case n.kind == unsigned && o.kind == unsigned:
		return n.u == o.u
	case n.kind == signed && o.kind == unsigned:
		return n.i >= 0 && uint64(n.i) == o.u
	case n.kind == floating:
		return n.f == o.f
	case n.kind == signed:
		return o.f == math.Trunc(o.f) && o.f >= -(1<<63) && o.f < 1<<63 && int64(o.f) == n.i
	default:
		return o.f == math.Trunc(o.f) && o.f >= 0 && o.f < 1<<64 && uint64(o.f) == n.u
	}
}

func toNumber(v any) (number, bool) {
	switch n := v.(type) {
	case int:
		return number{kind: signed, i: int64(n)}, true
	case int8:
		return number{kind: signed, i: int64(n)}, true
	case int16:
		return number{kind: signed, i: int64(n)}, true
	case int32:
		return number{kind: signed, i: int64(n)}, true
	case int64:
		return number{kind: signed, i: n}, true
	case uint:
		return number{kind: unsigned, u: uint64(n)}, true
	case uint8:
		return number{kind: unsigned, u: uint64(n)}, true
	case uint16:
		return number{kind: unsigned, u: uint64(n)}, true
	case uint32:
		return number{kind: unsigned, u: uint64(n)}, true
	case uint64:
		return number{kind: unsigned, u: n}, true
	case float32:
		return number{kind: floating, f: float64(n)}, true
	case float64:
		return number{kind: floating, f: n}, true
	}
	return number{}, false
}
