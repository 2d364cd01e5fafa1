// Package tree flattens schema-tagged nested values into path-addressed
// record fields.
//
// A value is described by a Schema whose every node declares its own kind
// (record, enum, array, map, union, fixed or a primitive). The datum that
// accompanies the schema uses plain Go values:
//
//	record   map[string]any keyed by field name
//	enum     string or fmt.Stringer
//	array    any slice (or array)
//	map      any map keyed by string or fmt.Stringer
//	union    the datum of the chosen branch, or Tagged to name the branch
//	fixed    []byte or [N]byte
//	bytes    []byte
//	string   string, []byte or fmt.Stringer
//	numbers  native Go numbers (logical-type values such as time.Time pass through)
//	boolean  bool
//	null     nil
//
// Flattening emits one (path, value) pair per leaf. Record fields and map keys
// extend the path with "/" + name, array elements share their parent's path,
// and union branches are walked at the union's own path.
package tree

import "fmt"

// Kind identifies the shape of a schema node.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindRecord
	KindEnum
	KindArray
	KindMap
	KindUnion
	KindFixed
	KindString
	KindBytes
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBoolean
	KindNull
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindRecord:  "record",
	KindEnum:    "enum",
	KindArray:   "array",
	KindMap:     "map",
	KindUnion:   "union",
	KindFixed:   "fixed",
	KindString:  "string",
	KindBytes:   "bytes",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindBoolean: "boolean",
	KindNull:    "null",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsPrimitive reports whether k is a leaf kind without a name or children.
func (k Kind) IsPrimitive() bool {
	return k >= KindString && k <= KindNull
}

// Schema describes one node of a value tree.
type Schema interface {
	// Kind returns the node's kind tag.
	Kind() Kind
	// Accept calls the Visitor method matching the schema's shape.
	Accept(v Visitor) error
}

// Visitor has one method per schema shape. Adding a shape adds a method here,
// so every walker over schemas must handle it to compile.
type Visitor interface {
	VisitRecord(s *RecordSchema) error
	VisitEnum(s *EnumSchema) error
	VisitArray(s *ArraySchema) error
	VisitMap(s *MapSchema) error
	VisitUnion(s *UnionSchema) error
	VisitFixed(s *FixedSchema) error
	VisitPrimitive(s *PrimitiveSchema) error
}

// Field is a named member of a record schema.
type Field struct {
	Name   string
	Schema Schema
}

// RecordSchema is a container of named fields. Record schemas are referenced
// by pointer so that a field may refer back to an enclosing record.
type RecordSchema struct {
	Name   string
	Fields []Field
}

func (s *RecordSchema) Kind() Kind             { return KindRecord }
func (s *RecordSchema) Accept(v Visitor) error { return v.VisitRecord(s) }

// Field returns the field with the given name.
func (s *RecordSchema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// EnumSchema is a closed set of symbols.
type EnumSchema struct {
	Name    string
	Symbols []string
}

func (s *EnumSchema) Kind() Kind             { return KindEnum }
func (s *EnumSchema) Accept(v Visitor) error { return v.VisitEnum(s) }

// HasSymbol reports whether symbol belongs to the enum.
func (s *EnumSchema) HasSymbol(symbol string) bool {
	for _, sym := range s.Symbols {
		if sym == symbol {
			return true
		}
	}
	return false
}

// ArraySchema is an ordered sequence of items of one schema.
type ArraySchema struct {
	Items Schema
}

func (s *ArraySchema) Kind() Kind             { return KindArray }
func (s *ArraySchema) Accept(v Visitor) error { return v.VisitArray(s) }

// MapSchema is an associative map from string keys to values of one schema.
type MapSchema struct {
	Values Schema
}

func (s *MapSchema) Kind() Kind             { return KindMap }
func (s *MapSchema) Accept(v Visitor) error { return v.VisitMap(s) }

// UnionSchema is a value of exactly one of several branch schemas.
type UnionSchema struct {
	Types []Schema
}

func (s *UnionSchema) Kind() Kind             { return KindUnion }
func (s *UnionSchema) Accept(v Visitor) error { return v.VisitUnion(s) }

// Nullable reports whether one of the branches is null.
func (s *UnionSchema) Nullable() bool {
	for _, t := range s.Types {
		if t.Kind() == KindNull {
			return true
		}
	}
	return false
}

// FixedSchema is a named binary value of a fixed length.
type FixedSchema struct {
	Name string
	Size int
}

func (s *FixedSchema) Kind() Kind             { return KindFixed }
func (s *FixedSchema) Accept(v Visitor) error { return v.VisitFixed(s) }

// PrimitiveSchema is a leaf of one of the primitive kinds.
type PrimitiveSchema struct {
	Type Kind
}

func (s *PrimitiveSchema) Kind() Kind             { return s.Type }
func (s *PrimitiveSchema) Accept(v Visitor) error { return v.VisitPrimitive(s) }

// Primitive schemas, shared.
var (
	String  = &PrimitiveSchema{Type: KindString}
	Bytes   = &PrimitiveSchema{Type: KindBytes}
	Int     = &PrimitiveSchema{Type: KindInt}
	Long    = &PrimitiveSchema{Type: KindLong}
	Float   = &PrimitiveSchema{Type: KindFloat}
	Double  = &PrimitiveSchema{Type: KindDouble}
	Boolean = &PrimitiveSchema{Type: KindBoolean}
	Null    = &PrimitiveSchema{Type: KindNull}
)

// TypeName returns the name a union branch is known by: the declared name of
// records, enums and fixed types, and the kind name otherwise.
func TypeName(s Schema) string {
	switch t := s.(type) {
	case *RecordSchema:
		return t.Name
	case *EnumSchema:
		return t.Name
	case *FixedSchema:
		return t.Name
	}
	return s.Kind().String()
}

// Value pairs a datum with the schema that describes it.
type Value struct {
	Schema Schema
	Datum  any
}

// Tagged is a union datum that names its branch explicitly.
type Tagged struct {
	Branch string
	Value  any
}
