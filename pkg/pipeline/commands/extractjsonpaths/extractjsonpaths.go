// Package extractjsonpaths implements the extractJsonPaths command.
package extractjsonpaths

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Name is the command name.
const Name = "extractJsonPaths"

type extraction struct {
	field string
	path  string
}

// Command evaluates JSON paths against the JSON document in the attachment
// body and adds each match to the configured output field.
type Command struct {
	runtime.BaseCommand
	extractions []extraction
	flatten     bool
}

// Build creates the command.
//
// Options:
//   - paths: mapping of output field to path. Paths use gjson syntax or the
//     slash form "/a/b", and "*" iterates arrays.
//   - flatten: add array matches element by element (default true)
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	paths, err := cfg.Map("paths")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "%s: paths must not be empty", Name)
	}
	flatten, err := cfg.Bool("flatten", true)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(paths))
	for field := range paths {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	extractions := make([]extraction, 0, len(fields))
	for _, field := range fields {
		path, ok := paths[field].(string)
		if !ok || path == "" {
			return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig,
				"%s: path for field %s must be a non-empty string", Name, field)
		}
		extractions = append(extractions, extraction{field: field, path: normalizePath(path)})
	}

	return &Command{
		BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx),
		extractions: extractions,
		flatten:     flatten,
	}, nil
}

// Process adds the matches of every path to rec.
func (c *Command) Process(rec *record.Record) (bool, error) {
	doc, err := body(rec)
	if err != nil {
		return false, err
	}

	for _, ex := range c.extractions {
		result := gjson.GetBytes(doc, ex.path)
		if !result.Exists() {
			continue
		}
		if c.flatten {
			appendFlattened(rec, ex.field, result)
		} else {
			rec.Put(ex.field, result.Value())
		}
	}
	return c.ProcessChild(rec)
}

func body(rec *record.Record) ([]byte, error) {
	var doc []byte
	switch v := rec.GetFirstValue(record.AttachmentBody).(type) {
	case []byte:
		doc = v
	case string:
		doc = []byte(v)
	case nil:
		return nil, cerrors.Errorf(cerrors.CodeMissingPayload, cerrors.ErrMissingPayload, "record has no %s", record.AttachmentBody)
	default:
		return nil, cerrors.NewError(cerrors.CodeTypeMismatch,
			fmt.Sprintf("attachment body of type %T is not a JSON document", v), cerrors.ErrTypeMismatch)
	}
	if !gjson.ValidBytes(doc) {
		return nil, cerrors.NewError(cerrors.CodeTypeMismatch, "attachment body is not valid JSON", cerrors.ErrTypeMismatch)
	}
	return doc, nil
}

// appendFlattened adds array elements one by one, descending into nested
// arrays produced by wildcard paths.
func appendFlattened(rec *record.Record, field string, result gjson.Result) {
	if !result.IsArray() {
		rec.Put(field, result.Value())
		return
	}
	result.ForEach(func(_, item gjson.Result) bool {
		appendFlattened(rec, field, item)
		return true
	})
}

// normalizePath converts slash-separated paths to gjson dot notation and
// "*" wildcards to gjson's "#".
// Example: "/data/*/name" -> "data.#.name"
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/") {
		path = strings.TrimPrefix(path, "/")
		path = strings.ReplaceAll(path, "/", ".")
	}
	return strings.ReplaceAll(path, "*", "#")
}
