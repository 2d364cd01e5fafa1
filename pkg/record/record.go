// Package record provides the multi-valued data container passed between
// pipeline commands.
//
// A Record maps a field name to an ordered list of values. Values accumulate
// inside the list, so a field that was put three times holds three values in
// put order. Absent fields read as an empty list.
package record

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Reserved field names shared between reader commands and transform commands.
const (
	// ID holds a unique identifier of the record
	ID = "id"
	// Message holds a free-form text payload
	Message = "message"
	// Timestamp holds the event time of the record
	Timestamp = "timestamp"

	// AttachmentBody holds the raw input payload (bytes, a parsed document object, ...)
	AttachmentBody = "_attachment_body"
	// AttachmentMimeType holds the declared content type of AttachmentBody
	AttachmentMimeType = "_attachment_mimetype"
	// AttachmentCharset holds the character set of AttachmentBody, if textual
	AttachmentCharset = "_attachment_charset"
	// AttachmentName holds the original name of AttachmentBody (e.g. a file name)
	AttachmentName = "_attachment_name"
)

// Record is a mapping from field name to an ordered sequence of values.
// The zero value is not usable; create records with New.
//
// Records are not safe for concurrent mutation.
type Record struct {
	fields map[string][]any
}

// New creates an empty record.
func New() *Record {
	return &Record{fields: make(map[string][]any)}
}

// Put appends value to the values of field, creating the field if absent.
// A nil value is stored as an explicit null entry.
func (r *Record) Put(field string, value any) {
	r.fields[field] = append(r.fields[field], value)
}

// PutAll appends values to field in order.
func (r *Record) PutAll(field string, values ...any) {
	if len(values) == 0 {
		return
	}
	r.fields[field] = append(r.fields[field], values...)
}

// Get returns the values of field in insertion order, or an empty slice if the
// field is absent. The returned slice must be treated as read-only; its
// capacity is clipped so appending to it never writes into the record.
func (r *Record) Get(field string) []any {
	values := r.fields[field]
	if values == nil {
		return []any{}
	}
	return values[:len(values):len(values)]
}

// GetFirstValue returns the first value of field, or nil if the field is absent.
func (r *Record) GetFirstValue(field string) any {
	values := r.fields[field]
	if len(values) == 0 {
		return nil
	}
	return values[0]
}

// Has reports whether field holds at least one value.
func (r *Record) Has(field string) bool {
	return len(r.fields[field]) > 0
}

// Replace removes all values of field and then puts value.
func (r *Record) Replace(field string, value any) {
	r.fields[field] = []any{value}
}

// RemoveAll removes field and all of its values.
func (r *Record) RemoveAll(field string) {
	delete(r.fields, field)
}

// Fields returns the names of all fields holding values, sorted.
func (r *Record) Fields() []string {
	names := make([]string, 0, len(r.fields))
	for name, values := range r.fields {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of fields holding values.
func (r *Record) Len() int {
	n := 0
	for _, values := range r.fields {
		if len(values) > 0 {
			n++
		}
	}
	return n
}

// Copy returns a record whose value lists are independent of r. The values
// themselves are shared; they are treated as immutable payloads.
func (r *Record) Copy() *Record {
	fields := make(map[string][]any, len(r.fields))
	for name, values := range r.fields {
		if len(values) == 0 {
			continue
		}
		cp := make([]any, len(values))
		copy(cp, values)
		fields[name] = cp
	}
	return &Record{fields: fields}
}

// Equal reports whether r and other hold the same fields with deeply equal
// values in the same order.
func (r *Record) Equal(other *Record) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil || r.Len() != other.Len() {
		return false
	}
	for name, values := range r.fields {
		if len(values) == 0 {
			continue
		}
		if !reflect.DeepEqual(values, other.fields[name]) {
			return false
		}
	}
	return true
}

// ToMap returns a copy of the record contents as a plain map.
func (r *Record) ToMap() map[string][]any {
	return r.Copy().fields
}

// String renders the record with fields in sorted order.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range r.Fields() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", name, r.fields[name])
	}
	b.WriteByte('}')
	return b.String()
}
