// Package fieldref parses `@{field}` references used in command options.
package fieldref

import (
	"strings"

	"github.com/wehubfusion/Conduit/pkg/record"
)

const (
	prefix = "@{"
	suffix = "}"
)

// Parse reports whether s is a reference and returns the referenced field.
// "@{}" refers to the whole record and yields an empty field name.
func Parse(s string) (string, bool) {
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) || len(s) < len(prefix)+len(suffix) {
		return "", false
	}
	return s[len(prefix) : len(s)-len(suffix)], true
}

// Resolve expands v against rec. A string reference yields the referenced
// field's values (or the record itself for "@{}"); anything else is
// returned as a single literal value.
func Resolve(rec *record.Record, v any) []any {
	s, ok := v.(string)
	if !ok {
		return []any{v}
	}
	field, ok := Parse(s)
	if !ok {
		return []any{v}
	}
	if field == "" {
		return []any{rec}
	}
	return rec.Get(field)
}
