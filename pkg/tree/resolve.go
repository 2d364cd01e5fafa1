package tree

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"time"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
)

var errNoMatch = errors.New("no match")

// Resolve returns the index of the union branch that datum belongs to.
//
// A Tagged datum selects the branch with the same TypeName. Otherwise branches
// are tried in declared order, first for an exact match of the datum's Go type,
// then allowing numeric promotion (int to long to float to double). Exactly one
// index is returned; a datum matching no branch is an error.
func Resolve(u *UnionSchema, datum any) (int, error) {
	for i, branch := range u.Types {
		if branch == nil {
			return -1, cerrors.Errorf(cerrors.CodeUnsupportedKind, cerrors.ErrUnsupportedKind,
				"union branch %d has no schema", i)
		}
	}
	if t, ok := datum.(Tagged); ok {
		for i, branch := range u.Types {
			if TypeName(branch) == t.Branch {
				return i, nil
			}
		}
		return -1, cerrors.Errorf(cerrors.CodeUnresolvedUnion, cerrors.ErrUnresolvedUnion,
			"branch %q is not part of the union", t.Branch)
	}

	for _, promote := range []bool{false, true} {
		for i, branch := range u.Types {
			if branch.Accept(matcher{datum: datum, promote: promote}) == nil {
				return i, nil
			}
		}
	}
	return -1, cerrors.Errorf(cerrors.CodeUnresolvedUnion, cerrors.ErrUnresolvedUnion,
		"no branch matches datum of type %T", datum)
}

// matcher reports errNoMatch from its Visit methods when datum does not fit
// the visited schema.
type matcher struct {
	datum   any
	promote bool
}

func verdict(ok bool) error {
	if ok {
		return nil
	}
	return errNoMatch
}

func (m matcher) VisitRecord(s *RecordSchema) error {
	fields, ok := m.datum.(map[string]any)
	if !ok {
		return errNoMatch
	}
	for key := range fields {
		if _, declared := s.Field(key); !declared {
			return errNoMatch
		}
	}
	for _, f := range s.Fields {
		if _, present := fields[f.Name]; present {
			continue
		}
		if !acceptsNull(f.Schema) {
			return errNoMatch
		}
	}
	return nil
}

func (m matcher) VisitEnum(s *EnumSchema) error {
	symbol, ok := symbolOf(m.datum)
	return verdict(ok && s.HasSymbol(symbol))
}

func (m matcher) VisitArray(s *ArraySchema) error {
	if isBinary(m.datum) {
		return errNoMatch
	}
	if _, ok := m.datum.([]any); ok {
		return nil
	}
	if m.datum == nil {
		return errNoMatch
	}
	k := reflect.TypeOf(m.datum).Kind()
	return verdict(k == reflect.Slice || k == reflect.Array)
}

func (m matcher) VisitMap(s *MapSchema) error {
	if _, ok := m.datum.(map[string]any); ok {
		return nil
	}
	if m.datum == nil {
		return errNoMatch
	}
	t := reflect.TypeOf(m.datum)
	return verdict(t.Kind() == reflect.Map && t.Key().Kind() == reflect.String)
}

func (m matcher) VisitUnion(s *UnionSchema) error {
	return errNoMatch
}

func (m matcher) VisitFixed(s *FixedSchema) error {
	if _, ok := m.datum.(*big.Rat); ok {
		return nil
	}
	b, ok := binaryOf(m.datum)
	return verdict(ok && len(b) == s.Size)
}

func (m matcher) VisitPrimitive(s *PrimitiveSchema) error {
	d := m.datum
	switch s.Type {
	case KindNull:
		return verdict(d == nil)
	case KindBoolean:
		_, ok := d.(bool)
		return verdict(ok)
	case KindString:
		if _, ok := d.(string); ok {
			return nil
		}
		_, ok := d.(fmt.Stringer)
		return verdict(m.promote && ok)
	case KindBytes:
		switch d.(type) {
		case []byte, *big.Rat:
			return nil
		}
		return errNoMatch
	case KindInt:
		if isInt(d) {
			return nil
		}
		return verdict(m.promote && isTemporal(d))
	case KindLong:
		if isLong(d) {
			return nil
		}
		return verdict(m.promote && (isInt(d) || isTemporal(d)))
	case KindFloat:
		if _, ok := d.(float32); ok {
			return nil
		}
		return verdict(m.promote && (isInt(d) || isLong(d)))
	case KindDouble:
		if _, ok := d.(float64); ok {
			return nil
		}
		if _, ok := d.(*big.Rat); ok {
			return verdict(m.promote)
		}
		_, isFloat := d.(float32)
		return verdict(m.promote && (isFloat || isInt(d) || isLong(d)))
	}
	return errNoMatch
}

func acceptsNull(s Schema) bool {
	switch t := s.(type) {
	case *UnionSchema:
		return t.Nullable()
	case *PrimitiveSchema:
		return t.Type == KindNull
	}
	return false
}

func isInt(d any) bool {
	switch d.(type) {
	case int, int32, int16, int8, uint8, uint16:
		return true
	}
	return false
}

func isLong(d any) bool {
	switch d.(type) {
	case int64, uint32:
		return true
	}
	return false
}

func isTemporal(d any) bool {
	switch d.(type) {
	case time.Time, time.Duration:
		return true
	}
	return false
}

func isBinary(d any) bool {
	_, ok := binaryOf(d)
	return ok
}

// binaryOf returns the bytes of a []byte or [N]byte datum.
func binaryOf(d any) ([]byte, bool) {
	if b, ok := d.([]byte); ok {
		return b, true
	}
	if d == nil {
		return nil, false
	}
	v := reflect.ValueOf(d)
	if v.Kind() != reflect.Array || v.Type().Elem().Kind() != reflect.Uint8 {
		return nil, false
	}
	b := make([]byte, v.Len())
	reflect.Copy(reflect.ValueOf(b), v)
	return b, true
}

func symbolOf(d any) (string, bool) {
	switch s := d.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}
