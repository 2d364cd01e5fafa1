package tree

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"
	"sort"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// DefaultMaxDepth bounds the nesting depth walked by a Flattener.
const DefaultMaxDepth = 256

// PathSeparator joins container keys and field names in output paths.
const PathSeparator = "/"

// Flattener converts schema-tagged values into record fields.
// A Flattener holds no per-call state and may be shared.
type Flattener struct {
	maxDepth int
}

// Option configures a Flattener.
type Option func(*Flattener)

// WithMaxDepth sets the maximum nesting depth. Values <= 0 select DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(f *Flattener) {
		if depth <= 0 {
			depth = DefaultMaxDepth
		}
		f.maxDepth = depth
	}
}

// NewFlattener creates a flattener.
func NewFlattener(opts ...Option) *Flattener {
	f := &Flattener{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxDepth returns the configured depth bound.
func (f *Flattener) MaxDepth() int {
	return f.maxDepth
}

// Flatten writes datum, described by schema, into rec. Paths start at prefix.
// On error rec may hold the entries emitted before the failure.
func (f *Flattener) Flatten(schema Schema, datum any, rec *record.Record, prefix string) error {
	if schema == nil {
		return cerrors.NewError(cerrors.CodeMissingPayload, "schema is required", cerrors.ErrMissingPayload)
	}
	return schema.Accept(step{f: f, rec: rec, datum: datum, path: prefix})
}

// FlattenValue is Flatten for a Value.
func (f *Flattener) FlattenValue(v Value, rec *record.Record, prefix string) error {
	return f.Flatten(v.Schema, v.Datum, rec, prefix)
}

// Flatten writes datum into rec using a default Flattener.
func Flatten(schema Schema, datum any, rec *record.Record, prefix string) error {
	return NewFlattener().Flatten(schema, datum, rec, prefix)
}

// step is one frame of the recursive walk.
type step struct {
	f     *Flattener
	rec   *record.Record
	datum any
	path  string
	depth int
}

func (s step) descend(schema Schema, datum any, path string) error {
	if s.depth+1 > s.f.maxDepth {
		return cerrors.Errorf(cerrors.CodeMaxDepth, cerrors.ErrMaxDepth,
			"path %q is nested deeper than %d", path, s.f.maxDepth)
	}
	if schema == nil {
		return cerrors.Errorf(cerrors.CodeUnsupportedKind, cerrors.ErrUnsupportedKind,
			"path %q has no schema", path)
	}
	return schema.Accept(step{f: s.f, rec: s.rec, datum: datum, path: path, depth: s.depth + 1})
}

func (s step) mismatch(kind Kind) error {
	return cerrors.Errorf(cerrors.CodeTypeMismatch, cerrors.ErrTypeMismatch,
		"path %q: %s schema cannot hold datum of type %T", s.path, kind, s.datum)
}

func (s step) VisitRecord(schema *RecordSchema) error {
	fields, ok := s.datum.(map[string]any)
	if !ok {
		return s.mismatch(KindRecord)
	}
	for _, field := range schema.Fields {
		if err := s.descend(field.Schema, fields[field.Name], s.path+PathSeparator+field.Name); err != nil {
			return err
		}
	}
	return nil
}

func (s step) VisitEnum(schema *EnumSchema) error {
	symbol, ok := symbolOf(s.datum)
	if !ok {
		return s.mismatch(KindEnum)
	}
	s.rec.Put(s.path, symbol)
	return nil
}

func (s step) VisitArray(schema *ArraySchema) error {
	if items, ok := s.datum.([]any); ok {
		for _, item := range items {
			if err := s.descend(schema.Items, item, s.path); err != nil {
				return err
			}
		}
		return nil
	}
	if s.datum == nil {
		return s.mismatch(KindArray)
	}
	v := reflect.ValueOf(s.datum)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return s.mismatch(KindArray)
	}
	for i := 0; i < v.Len(); i++ {
		if err := s.descend(schema.Items, v.Index(i).Interface(), s.path); err != nil {
			return err
		}
	}
	return nil
}

// VisitMap walks entries in sorted key order so repeated runs emit identical
// output regardless of Go map iteration order.
func (s step) VisitMap(schema *MapSchema) error {
	entries, err := s.mapEntries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.descend(schema.Values, e.value, s.path+PathSeparator+e.key); err != nil {
			return err
		}
	}
	return nil
}

// VisitUnion walks the resolved branch at the union's own path; the branch
// name is not added to the path.
func (s step) VisitUnion(schema *UnionSchema) error {
	idx, err := Resolve(schema, s.datum)
	if err != nil {
		return fmt.Errorf("path %q: %w", s.path, err)
	}
	datum := s.datum
	if t, ok := datum.(Tagged); ok {
		datum = t.Value
	}
	return s.descend(schema.Types[idx], datum, s.path)
}

func (s step) VisitFixed(schema *FixedSchema) error {
	if r, ok := s.datum.(*big.Rat); ok {
		s.rec.Put(s.path, decimal(r))
		return nil
	}
	b, ok := binaryOf(s.datum)
	if !ok {
		return s.mismatch(KindFixed)
	}
	s.rec.Put(s.path, bytes.Clone(b))
	return nil
}

func (s step) VisitPrimitive(schema *PrimitiveSchema) error {
	switch schema.Type {
	case KindNull:
		return nil
	case KindString:
		switch v := s.datum.(type) {
		case string:
			s.rec.Put(s.path, v)
		case []byte:
			s.rec.Put(s.path, string(v))
		case fmt.Stringer:
			s.rec.Put(s.path, v.String())
		default:
			return s.mismatch(KindString)
		}
		return nil
	case KindBytes:
		switch v := s.datum.(type) {
		case []byte:
			s.rec.Put(s.path, bytes.Clone(v))
		case *big.Rat:
			s.rec.Put(s.path, decimal(v))
		default:
			return s.mismatch(KindBytes)
		}
		return nil
	case KindInt, KindLong, KindFloat, KindDouble, KindBoolean:
		if s.datum == nil {
			return s.mismatch(schema.Type)
		}
		s.rec.Put(s.path, s.datum)
		return nil
	}
	return cerrors.Errorf(cerrors.CodeUnsupportedKind, cerrors.ErrUnsupportedKind,
		"path %q: cannot flatten kind %s", s.path, schema.Type)
}

// decimal copies a decoded decimal logical value. A nil *big.Rat is zero.
func decimal(r *big.Rat) *big.Rat {
	if r == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(r)
}

type mapEntry struct {
	key   string
	value any
}

func (s step) mapEntries() ([]mapEntry, error) {
	var entries []mapEntry
	if m, ok := s.datum.(map[string]any); ok {
		entries = make([]mapEntry, 0, len(m))
		for k, v := range m {
			entries = append(entries, mapEntry{key: k, value: v})
		}
	} else {
		if s.datum == nil {
			return nil, s.mismatch(KindMap)
		}
		v := reflect.ValueOf(s.datum)
		if v.Kind() != reflect.Map {
			return nil, s.mismatch(KindMap)
		}
		entries = make([]mapEntry, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, ok := keyString(iter.Key())
			if !ok {
				return nil, s.mismatch(KindMap)
			}
			entries = append(entries, mapEntry{key: key, value: iter.Value().Interface()})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return entries, nil
}

func keyString(k reflect.Value) (string, bool) {
	if k.Kind() == reflect.String {
		return k.String(), true
	}
	if st, ok := k.Interface().(fmt.Stringer); ok {
		return st.String(), true
	}
	return "", false
}
