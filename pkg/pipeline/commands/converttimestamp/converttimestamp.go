// Package converttimestamp implements the convertTimestamp command.
package converttimestamp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Name is the command name.
const Name = "convertTimestamp"

// Command rewrites every value of a field from one timestamp representation
// to another. A value that matches none of the input formats drops the
// record.
type Command struct {
	runtime.BaseCommand
	field        string
	inputFormats []string
	inputLoc     *time.Location
	outputFormat string
	outputLoc    *time.Location
}

// Build creates the command.
//
// Options:
//   - field: field to convert (default "timestamp")
//   - inputFormats: formats tried in order (default RFC3339, DateTime,
//     DateOnly, unixTimeInMillis)
//   - inputTimezone: zone for inputs without an offset (default UTC)
//   - outputFormat: format to write (default RFC3339Nano)
//   - outputTimezone: zone of the written value (default UTC)
//
// Values that are already time.Time, as produced by Avro timestamp logical
// types, skip parsing.
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	field, err := cfg.String("field", record.Timestamp)
	if err != nil {
		return nil, err
	}
	inputs, err := cfg.StringSlice("inputFormats", []string{"RFC3339", "DateTime", "DateOnly", FormatUnixMillis})
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, configError("inputFormats must not be empty")
	}
	output, err := cfg.String("outputFormat", "RFC3339Nano")
	if err != nil {
		return nil, err
	}
	inTZ, err := cfg.String("inputTimezone", "UTC")
	if err != nil {
		return nil, err
	}
	outTZ, err := cfg.String("outputTimezone", "UTC")
	if err != nil {
		return nil, err
	}

	inLoc, err := time.LoadLocation(inTZ)
	if err != nil {
		return nil, configError("invalid inputTimezone %q: %v", inTZ, err)
	}
	outLoc, err := time.LoadLocation(outTZ)
	if err != nil {
		return nil, configError("invalid outputTimezone %q: %v", outTZ, err)
	}

	return &Command{
		BaseCommand:  runtime.NewBaseCommand(cfg, parent, child, mctx),
		field:        field,
		inputFormats: inputs,
		inputLoc:     inLoc,
		outputFormat: output,
		outputLoc:    outLoc,
	}, nil
}

// Process converts the field and forwards rec.
func (c *Command) Process(rec *record.Record) (bool, error) {
	values := rec.Get(c.field)
	converted := make([]any, len(values))
	for i, v := range values {
		t, ok := c.parse(v)
		if !ok {
			c.Logger().Debug("cannot parse timestamp", zap.String("field", c.field), zap.Any("value", v))
			return false, nil
		}
		converted[i] = c.format(t.In(c.outputLoc))
	}
	if len(converted) > 0 {
		rec.RemoveAll(c.field)
		rec.PutAll(c.field, converted...)
	}
	return c.ProcessChild(rec)
}

func (c *Command) parse(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case int64:
		return c.fromUnix(x)
	case int:
		return c.fromUnix(int64(x))
	case string:
		s := strings.TrimSpace(x)
		for _, format := range c.inputFormats {
			if isUnix(format) {
				n, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					continue
				}
				return unixTime(format, n), true
			}
			if t, err := time.ParseInLocation(layoutOf(format), s, c.inputLoc); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func (c *Command) fromUnix(n int64) (time.Time, bool) {
	for _, format := range c.inputFormats {
		if isUnix(format) {
			return unixTime(format, n), true
		}
	}
	return time.Time{}, false
}

func unixTime(format string, n int64) time.Time {
	if format == FormatUnixSeconds {
		return time.Unix(n, 0)
	}
	return time.UnixMilli(n)
}

func (c *Command) format(t time.Time) any {
	switch c.outputFormat {
	case FormatUnixMillis:
		return t.UnixMilli()
	case FormatUnixSeconds:
		return t.Unix()
	}
	return t.Format(layoutOf(c.outputFormat))
}

func configError(format string, args ...any) error {
	return cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "%s: %s", Name, fmt.Sprintf(format, args...))
}
