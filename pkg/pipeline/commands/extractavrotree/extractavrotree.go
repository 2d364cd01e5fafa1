// Package extractavrotree implements the extractAvroTree command, which
// flattens the Avro datum held in a record's attachment body into fields.
package extractavrotree

import (
	"fmt"

	"github.com/hamba/avro/v2"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
	"github.com/wehubfusion/Conduit/pkg/tree"
	"github.com/wehubfusion/Conduit/pkg/tree/avrotree"
)

// Name is the command name.
const Name = "extractAvroTree"

// Command copies the input record, writes every leaf of the attached Avro
// datum into the copy, and forwards the copy.
type Command struct {
	runtime.BaseCommand
	outputFieldPrefix string
	writerSchema      avro.Schema
	flattener         *avrotree.Flattener
}

// Build creates the command.
//
// Options:
//   - outputFieldPrefix: prepended to every output path (default "")
//   - schemaString / schemaFile: writer schema used when the body holds
//     binary-encoded bytes instead of an avrotree.Datum
//   - maxDepth: nesting bound (default tree.DefaultMaxDepth)
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	prefix, err := cfg.String("outputFieldPrefix", "")
	if err != nil {
		return nil, err
	}
	schemaString, err := cfg.String("schemaString", "")
	if err != nil {
		return nil, err
	}
	schemaFile, err := cfg.String("schemaFile", "")
	if err != nil {
		return nil, err
	}
	maxDepth, err := cfg.Int("maxDepth", tree.DefaultMaxDepth)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		return nil, configError("maxDepth must be positive, got %d", maxDepth)
	}

	var schema avro.Schema
	switch {
	case schemaString != "" && schemaFile != "":
		return nil, configError("schemaString and schemaFile are mutually exclusive")
	case schemaString != "":
		if schema, err = avro.Parse(schemaString); err != nil {
			return nil, configError("invalid schemaString: %v", err)
		}
	case schemaFile != "":
		if schema, err = avro.ParseFiles(schemaFile); err != nil {
			return nil, configError("invalid schemaFile %s: %v", schemaFile, err)
		}
	}

	return &Command{
		BaseCommand:       runtime.NewBaseCommand(cfg, parent, child, mctx),
		outputFieldPrefix: prefix,
		writerSchema:      schema,
		flattener:         avrotree.NewFlattener(tree.WithMaxDepth(maxDepth)),
	}, nil
}

// Process flattens the attachment body into a copy of rec.
func (c *Command) Process(rec *record.Record) (bool, error) {
	datum, err := c.datum(rec)
	if err != nil {
		return false, err
	}

	out := rec.Copy()
	if err := c.flattener.Flatten(datum, out, c.outputFieldPrefix); err != nil {
		return false, err
	}
	return c.ProcessChild(out)
}

func (c *Command) datum(rec *record.Record) (avrotree.Datum, error) {
	if !rec.Has(record.AttachmentBody) {
		return avrotree.Datum{}, missingPayload("record has no %s", record.AttachmentBody)
	}

	switch body := rec.GetFirstValue(record.AttachmentBody).(type) {
	case nil:
		return avrotree.Datum{}, missingPayload("attachment body is nil")
	case avrotree.Datum:
		return body, nil
	case *avrotree.Datum:
		if body == nil {
			return avrotree.Datum{}, missingPayload("attachment body is nil")
		}
		return *body, nil
	case []byte:
		if c.writerSchema == nil {
			return avrotree.Datum{}, missingPayload("binary attachment (%v) requires schemaString or schemaFile",
				rec.GetFirstValue(record.AttachmentMimeType))
		}
		value, err := avrotree.Decode(c.writerSchema, body)
		if err != nil {
			return avrotree.Datum{}, cerrors.NewError(cerrors.CodeTypeMismatch, "cannot decode attachment body", err)
		}
		return avrotree.Datum{Schema: c.writerSchema, Value: value}, nil
	default:
		return avrotree.Datum{}, cerrors.NewError(cerrors.CodeTypeMismatch,
			fmt.Sprintf("attachment body of type %T is not an avro datum", body), cerrors.ErrTypeMismatch)
	}
}

func configError(format string, args ...any) error {
	return cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, Name+": "+format, args...)
}

func missingPayload(format string, args ...any) error {
	return cerrors.Errorf(cerrors.CodeMissingPayload, cerrors.ErrMissingPayload, format, args...)
}
