// Package avrotree adapts Avro schemas and generically decoded Avro datums to
// the tree package.
package avrotree

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hamba/avro/v2"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/record"
	"github.com/wehubfusion/Conduit/pkg/tree"
)

// MIME types recognized in record.AttachmentMimeType.
const (
	// MimeTypeMemory marks an attachment holding a decoded Datum.
	MimeTypeMemory = "avro/java+memory"
	// MimeTypeBinary marks an attachment holding one binary-encoded datum.
	MimeTypeBinary = "avro/binary"
)

// Datum is a decoded Avro value together with its writer schema.
type Datum struct {
	Schema avro.Schema
	Value  any
}

// Convert translates an Avro schema into a tree schema. Named types are
// converted once, so recursive Avro types become cyclic tree schemas.
func Convert(schema avro.Schema) (tree.Schema, error) {
	c := converter{named: make(map[string]tree.Schema)}
	return c.convert(schema)
}

type converter struct {
	named map[string]tree.Schema
}

func (c converter) convert(schema avro.Schema) (tree.Schema, error) {
	switch s := schema.(type) {
	case *avro.RefSchema:
		return c.convert(s.Schema())
	case *avro.RecordSchema:
		if ts, ok := c.named[s.FullName()]; ok {
			return ts, nil
		}
		rs := &tree.RecordSchema{Name: s.FullName()}
		c.named[s.FullName()] = rs
		for _, f := range s.Fields() {
			fs, err := c.convert(f.Type())
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", s.FullName(), f.Name(), err)
			}
			rs.Fields = append(rs.Fields, tree.Field{Name: f.Name(), Schema: fs})
		}
		return rs, nil
	case *avro.EnumSchema:
		if ts, ok := c.named[s.FullName()]; ok {
			return ts, nil
		}
		es := &tree.EnumSchema{Name: s.FullName(), Symbols: s.Symbols()}
		c.named[s.FullName()] = es
		return es, nil
	case *avro.FixedSchema:
		if ts, ok := c.named[s.FullName()]; ok {
			return ts, nil
		}
		fs := &tree.FixedSchema{Name: s.FullName(), Size: s.Size()}
		c.named[s.FullName()] = fs
		return fs, nil
	case *avro.ArraySchema:
		items, err := c.convert(s.Items())
		if err != nil {
			return nil, err
		}
		return &tree.ArraySchema{Items: items}, nil
	case *avro.MapSchema:
		values, err := c.convert(s.Values())
		if err != nil {
			return nil, err
		}
		return &tree.MapSchema{Values: values}, nil
	case *avro.UnionSchema:
		us := &tree.UnionSchema{}
		for _, t := range s.Types() {
			ts, err := c.convert(t)
			if err != nil {
				return nil, err
			}
			us.Types = append(us.Types, ts)
		}
		return us, nil
	}

	switch schema.Type() {
	case avro.String:
		return tree.String, nil
	case avro.Bytes:
		return tree.Bytes, nil
	case avro.Int:
		return tree.Int, nil
	case avro.Long:
		return tree.Long, nil
	case avro.Float:
		return tree.Float, nil
	case avro.Double:
		return tree.Double, nil
	case avro.Boolean:
		return tree.Boolean, nil
	case avro.Null:
		return tree.Null, nil
	}
	return nil, cerrors.Errorf(cerrors.CodeUnsupportedKind, cerrors.ErrUnsupportedKind,
		"unknown avro schema type %q", schema.Type())
}

// Normalize rewrites a generically decoded datum so the tree package can walk
// it. Union values that the Avro decoder wraps as a single-entry map keyed by
// the branch name become tree.Tagged. Nesting is bounded by
// tree.DefaultMaxDepth.
func Normalize(schema tree.Schema, datum any) (any, error) {
	return normalize(schema, datum, tree.DefaultMaxDepth)
}

func normalize(schema tree.Schema, datum any, maxDepth int) (any, error) {
	n := normalizer{maxDepth: maxDepth}
	return n.normalize(schema, datum, 0)
}

type normalizer struct {
	maxDepth int
}

func (n normalizer) normalize(schema tree.Schema, datum any, depth int) (any, error) {
	if depth > n.maxDepth {
		return nil, cerrors.Errorf(cerrors.CodeMaxDepth, cerrors.ErrMaxDepth,
			"datum is nested deeper than %d", n.maxDepth)
	}
	switch s := schema.(type) {
	case *tree.RecordSchema:
		fields, ok := datum.(map[string]any)
		if !ok {
			return datum, nil
		}
		out := make(map[string]any, len(fields))
		for k, v := range fields {
			f, declared := s.Field(k)
			if !declared {
				out[k] = v
				continue
			}
			nv, err := n.normalize(f.Schema, v, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case *tree.ArraySchema:
		items, ok := datum.([]any)
		if !ok {
			return datum, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			nv, err := n.normalize(s.Items, item, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case *tree.MapSchema:
		entries, ok := datum.(map[string]any)
		if !ok {
			return datum, nil
		}
		out := make(map[string]any, len(entries))
		for k, v := range entries {
			nv, err := n.normalize(s.Values, v, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case *tree.UnionSchema:
		if datum == nil {
			return nil, nil
		}
		if wrapped, ok := datum.(map[string]any); ok && len(wrapped) == 1 {
			for key, inner := range wrapped {
				if branch, found := branchNamed(s, key); found {
					nv, err := n.normalize(branch, inner, depth+1)
					if err != nil {
						return nil, err
					}
					return tree.Tagged{Branch: tree.TypeName(branch), Value: nv}, nil
				}
			}
		}
		idx, err := tree.Resolve(s, datum)
		if err != nil {
			return nil, err
		}
		return n.normalize(s.Types[idx], datum, depth+1)
	}
	return datum, nil
}

// branchNamed finds the union branch an Avro union key refers to. Keys are
// full names for named types and type names, possibly carrying a logical type
// suffix such as "long.timestamp-millis", otherwise.
func branchNamed(u *tree.UnionSchema, key string) (tree.Schema, bool) {
	base, _, _ := strings.Cut(key, ".")
	for _, t := range u.Types {
		name := tree.TypeName(t)
		if name == key {
			return t, true
		}
		if t.Kind().IsPrimitive() && name == base {
			return t, true
		}
	}
	return nil, false
}

// Decode unmarshals one binary-encoded datum written with schema.
func Decode(schema avro.Schema, data []byte) (any, error) {
	var v any
	if err := avro.Unmarshal(schema, data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode avro datum: %w", err)
	}
	return v, nil
}

// Flattener flattens Avro datums, caching converted schemas by fingerprint.
// It is safe for concurrent use.
type Flattener struct {
	flattener *tree.Flattener

	mu      sync.Mutex
	schemas map[[32]byte]tree.Schema
}

// NewFlattener creates an Avro flattener. The options configure the
// underlying tree.Flattener.
func NewFlattener(opts ...tree.Option) *Flattener {
	return &Flattener{
		flattener: tree.NewFlattener(opts...),
		schemas:   make(map[[32]byte]tree.Schema),
	}
}

// Flatten writes the datum into rec with paths starting at prefix.
func (f *Flattener) Flatten(d Datum, rec *record.Record, prefix string) error {
	if d.Schema == nil {
		return cerrors.NewError(cerrors.CodeMissingPayload, "avro datum has no schema", cerrors.ErrMissingPayload)
	}
	ts, err := f.treeSchema(d.Schema)
	if err != nil {
		return err
	}
	datum, err := normalize(ts, d.Value, f.flattener.MaxDepth())
	if err != nil {
		return err
	}
	return f.flattener.Flatten(ts, datum, rec, prefix)
}

func (f *Flattener) treeSchema(schema avro.Schema) (tree.Schema, error) {
	fp := schema.Fingerprint()
	f.mu.Lock()
	defer f.mu.Unlock()
	if ts, ok := f.schemas[fp]; ok {
		return ts, nil
	}
	ts, err := Convert(schema)
	if err != nil {
		return nil, err
	}
	f.schemas[fp] = ts
	return ts, nil
}

// Flatten writes d into rec using a default Flattener.
func Flatten(d Datum, rec *record.Record, prefix string) error {
	return NewFlattener().Flatten(d, rec, prefix)
}
