package validatefields

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/filter"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// ValueType is the type every value of a field must have.
type ValueType string

// Supported value types
const (
	TypeAny       ValueType = "any"
	TypeString    ValueType = "string"
	TypeNumber    ValueType = "number"
	TypeBoolean   ValueType = "boolean"
	TypeBytes     ValueType = "bytes"
	TypeTimestamp ValueType = "timestamp"
)

func (t ValueType) valid() bool {
	switch t {
	case TypeAny, TypeString, TypeNumber, TypeBoolean, TypeBytes, TypeTimestamp:
		return true
	}
	return false
}

// Violation codes
const (
	CodeRequired        = "REQUIRED"
	CodeTypeMismatch    = "TYPE_MISMATCH"
	CodeMinLength       = "MIN_LENGTH"
	CodeMaxLength       = "MAX_LENGTH"
	CodePatternMismatch = "PATTERN_MISMATCH"
	CodeFormatMismatch  = "FORMAT_MISMATCH"
	CodeEnumMismatch    = "ENUM_MISMATCH"
	CodeMinValue        = "MIN_VALUE"
	CodeMaxValue        = "MAX_VALUE"
	CodeMinItems        = "MIN_ITEMS"
	CodeMaxItems        = "MAX_ITEMS"
	CodeDuplicateItem   = "DUPLICATE_ITEM"
)

// Violation is one failed rule. Path is the field name, suffixed with the
// value index when the rule applies to a single value.
type Violation struct {
	Path    string
	Code    string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// rule holds the constraints declared for one field. Item rules apply to the
// number of values, the others to each value.
type rule struct {
	field    string
	typ      ValueType
	required bool

	minLength, maxLength *int
	pattern              *regexp.Regexp
	format               string
	formatFn             FormatValidator
	enum                 []string

	minimum, maximum *float64

	minItems, maxItems *int
	uniqueItems        bool
}

// parseRule reads the rule of field. A bare string is shorthand for the type.
func parseRule(field string, raw any) (*rule, error) {
	if s, ok := raw.(string); ok {
		raw = map[string]any{"type": s}
	}
	opts, ok := raw.(map[string]any)
	if !ok {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig,
			"%s: rule for %s must be a type name or a mapping, got %T", Name, field, raw)
	}
	cfg := runtime.NewCommandConfig(fmt.Sprintf("%s[%s]", Name, field), opts)

	r := &rule{field: field}
	typ, err := cfg.String("type", string(TypeAny))
	if err != nil {
		return nil, err
	}
	r.typ = ValueType(typ)
	if !r.typ.valid() {
		return nil, ruleErrorf(field, "unknown type %q", typ)
	}
	if r.required, err = cfg.Bool("required", false); err != nil {
		return nil, err
	}
	if r.minLength, err = optInt(cfg, "minLength"); err != nil {
		return nil, err
	}
	if r.maxLength, err = optInt(cfg, "maxLength"); err != nil {
		return nil, err
	}
	if r.minItems, err = optInt(cfg, "minItems"); err != nil {
		return nil, err
	}
	if r.maxItems, err = optInt(cfg, "maxItems"); err != nil {
		return nil, err
	}
	if r.minimum, err = optFloat(cfg, "minimum"); err != nil {
		return nil, err
	}
	if r.maximum, err = optFloat(cfg, "maximum"); err != nil {
		return nil, err
	}
	if r.uniqueItems, err = cfg.Bool("uniqueItems", false); err != nil {
		return nil, err
	}
	if r.enum, err = cfg.StringSlice("enum", nil); err != nil {
		return nil, err
	}

	pattern, err := cfg.String("pattern", "")
	if err != nil {
		return nil, err
	}
	if pattern != "" {
		if r.pattern, err = regexp.Compile(pattern); err != nil {
			return nil, ruleErrorf(field, "invalid pattern: %v", err)
		}
	}
	if r.format, err = cfg.String("format", ""); err != nil {
		return nil, err
	}
	if r.format != "" {
		if r.formatFn, ok = formats[r.format]; !ok {
			return nil, ruleErrorf(field, "unknown format %q, want one of %v", r.format, Formats())
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkApplicable(); err != nil {
		return nil, err
	}
	return r, nil
}

// checkApplicable rejects value rules that cannot apply to the declared type.
func (r *rule) checkApplicable() error {
	if r.typ != TypeString && r.typ != TypeBytes && (r.minLength != nil || r.maxLength != nil) {
		return ruleErrorf(r.field, "minLength/maxLength need type string or bytes, got %s", r.typ)
	}
	if r.typ != TypeString && (r.pattern != nil || r.format != "" || len(r.enum) > 0) {
		return ruleErrorf(r.field, "pattern/format/enum need type string, got %s", r.typ)
	}
	if r.typ != TypeNumber && (r.minimum != nil || r.maximum != nil) {
		return ruleErrorf(r.field, "minimum/maximum need type number, got %s", r.typ)
	}
	if r.minItems != nil && r.maxItems != nil && *r.minItems > *r.maxItems {
		return ruleErrorf(r.field, "minItems %d exceeds maxItems %d", *r.minItems, *r.maxItems)
	}
	return nil
}

func (r *rule) check(rec *record.Record) []Violation {
	values := rec.Get(r.field)
	if len(values) == 0 {
		if r.required {
			return []Violation{{Path: r.field, Code: CodeRequired, Message: "field is required"}}
		}
		return nil
	}

	var out []Violation
	if r.minItems != nil && len(values) < *r.minItems {
		out = append(out, Violation{r.field, CodeMinItems,
			fmt.Sprintf("%d values is less than minimum %d", len(values), *r.minItems)})
	}
	if r.maxItems != nil && len(values) > *r.maxItems {
		out = append(out, Violation{r.field, CodeMaxItems,
			fmt.Sprintf("%d values exceeds maximum %d", len(values), *r.maxItems)})
	}
	if r.uniqueItems {
		if i := firstDuplicate(values); i >= 0 {
			out = append(out, Violation{r.path(i, len(values)), CodeDuplicateItem, "duplicate value"})
		}
	}

	for i, v := range values {
		out = append(out, r.checkValue(v, r.path(i, len(values)))...)
	}
	return out
}

func (r *rule) path(i, n int) string {
	if n == 1 {
		return r.field
	}
	return fmt.Sprintf("%s[%d]", r.field, i)
}

func (r *rule) checkValue(value any, path string) []Violation {
	if value == nil {
		if r.required {
			return []Violation{{path, CodeRequired, "value is null"}}
		}
		return nil
	}

	mismatch := func() []Violation {
		return []Violation{{path, CodeTypeMismatch, fmt.Sprintf("expected %s, got %T", r.typ, value)}}
	}

	switch r.typ {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return mismatch()
		}
		return r.checkString(s, path)

	case TypeNumber:
		n, ok := toFloat(value)
		if !ok {
			return mismatch()
		}
		return r.checkNumber(n, path)

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return mismatch()
		}

	case TypeBytes:
		var n int
		switch b := value.(type) {
		case []byte:
			n = len(b)
		case string:
			n = len(b)
		default:
			return mismatch()
		}
		return r.checkLength(n, "byte length", path)

	case TypeTimestamp:
		switch t := value.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339Nano, t); err != nil {
				return []Violation{{path, CodeTypeMismatch, fmt.Sprintf("%q is not an RFC 3339 timestamp", t)}}
			}
		default:
			return mismatch()
		}
	}
	return nil
}

func (r *rule) checkString(s, path string) []Violation {
	out := r.checkLength(utf8.RuneCountInString(s), "length", path)
	if r.pattern != nil && !r.pattern.MatchString(s) {
		out = append(out, Violation{path, CodePatternMismatch,
			fmt.Sprintf("value does not match pattern '%s'", r.pattern)})
	}
	if r.formatFn != nil && !r.formatFn(s) {
		out = append(out, Violation{path, CodeFormatMismatch,
			fmt.Sprintf("value does not match format '%s'", r.format)})
	}
	if len(r.enum) > 0 && !contains(r.enum, s) {
		out = append(out, Violation{path, CodeEnumMismatch,
			fmt.Sprintf("value '%s' not in allowed values %v", s, r.enum)})
	}
	return out
}

func (r *rule) checkLength(n int, what, path string) []Violation {
	var out []Violation
	if r.minLength != nil && n < *r.minLength {
		out = append(out, Violation{path, CodeMinLength,
			fmt.Sprintf("%s %d is less than minimum %d", what, n, *r.minLength)})
	}
	if r.maxLength != nil && n > *r.maxLength {
		out = append(out, Violation{path, CodeMaxLength,
			fmt.Sprintf("%s %d exceeds maximum %d", what, n, *r.maxLength)})
	}
	return out
}

func (r *rule) checkNumber(n float64, path string) []Violation {
	var out []Violation
	if r.minimum != nil && n < *r.minimum {
		out = append(out, Violation{path, CodeMinValue,
			fmt.Sprintf("value %g is less than minimum %g", n, *r.minimum)})
	}
	if r.maximum != nil && n > *r.maximum {
		out = append(out, Violation{path, CodeMaxValue,
			fmt.Sprintf("value %g exceeds maximum %g", n, *r.maximum)})
	}
	return out
}

func firstDuplicate(values []any) int {
	for i := 1; i < len(values); i++ {
		for j := 0; j < i; j++ {
			if filter.Equal(values[i], values[j]) {
				return i
			}
		}
	}
	return -1
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func optInt(cfg *runtime.CommandConfig, key string) (*int, error) {
	if !cfg.Has(key) {
		return nil, nil
	}
	n, err := cfg.Int(key, 0)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig,
			"command %s: option %s must not be negative, got %d", cfg.Name(), key, n)
	}
	return &n, nil
}

func optFloat(cfg *runtime.CommandConfig, key string) (*float64, error) {
	if !cfg.Has(key) {
		return nil, nil
	}
	f, err := cfg.Float(key, 0)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func ruleErrorf(field, format string, args ...any) error {
	return cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig,
		"%s: field %s: %s", Name, field, fmt.Sprintf(format, args...))
}
