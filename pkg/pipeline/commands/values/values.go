// Package values implements the setValues, addValues and addValuesIfAbsent
// commands. Each option key names an output field; its value is a literal, a
// list of literals, or an `@{field}` reference to another field's values.
package values

import (
	"reflect"

	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/internal/fieldref"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Command names.
const (
	SetValues         = "setValues"
	AddValues         = "addValues"
	AddValuesIfAbsent = "addValuesIfAbsent"
)

type mode int

const (
	modeSet mode = iota
	modeAdd
	modeAddIfAbsent
)

type assignment struct {
	field  string
	values []any
}

// Command writes configured values into records.
type Command struct {
	runtime.BaseCommand
	mode        mode
	assignments []assignment
}

// Build creates the command; the mode follows the declared name.
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	m := modeAdd
	switch cfg.Name() {
	case SetValues:
		m = modeSet
	case AddValuesIfAbsent:
		m = modeAddIfAbsent
	}

	keys := cfg.Keys()
	assignments := make([]assignment, 0, len(keys))
	for _, field := range keys {
		v, _ := cfg.Raw(field)
		var vals []any
		switch list := v.(type) {
		case []any:
			vals = list
		default:
			vals = []any{v}
		}
		assignments = append(assignments, assignment{field: field, values: vals})
	}

	return &Command{
		BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx),
		mode:        m,
		assignments: assignments,
	}, nil
}

// Process applies the assignments and forwards rec.
func (c *Command) Process(rec *record.Record) (bool, error) {
	resolved := make([][]any, len(c.assignments))
	for i, a := range c.assignments {
		for _, v := range a.values {
			resolved[i] = append(resolved[i], fieldref.Resolve(rec, v)...)
		}
	}

	for i, a := range c.assignments {
		switch c.mode {
		case modeSet:
			rec.RemoveAll(a.field)
			rec.PutAll(a.field, resolved[i]...)
		case modeAdd:
			rec.PutAll(a.field, resolved[i]...)
		case modeAddIfAbsent:
			for _, v := range resolved[i] {
				if !contains(rec.Get(a.field), v) {
					rec.Put(a.field, v)
				}
			}
		}
	}
	return c.ProcessChild(rec)
}

func contains(values []any, v any) bool {
	for _, existing := range values {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}
