// Package convertcase implements the convertCase command.
package convertcase

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Name is the command name.
const Name = "convertCase"

// Command rewrites the string values of fields to upper, lower or title case
// using the casing rules of a language. Other values are left untouched.
type Command struct {
	runtime.BaseCommand
	fields []string
	caser  cases.Caser
}

// Build creates the command.
//
// Options:
//   - fields: fields to convert (required)
//   - case: upper, lower or title (default lower)
//   - language: BCP 47 tag such as "tr" or "en-US" (default "und")
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	fields, err := cfg.StringSlice("fields", nil)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, configError("fields must not be empty")
	}
	mode, err := cfg.String("case", "lower")
	if err != nil {
		return nil, err
	}
	lang, err := cfg.String("language", "und")
	if err != nil {
		return nil, err
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, configError("invalid language %q: %v", lang, err)
	}

	var caser cases.Caser
	switch mode {
	case "upper":
		caser = cases.Upper(tag)
	case "lower":
		caser = cases.Lower(tag)
	case "title":
		caser = cases.Title(tag)
	default:
		return nil, configError("case must be upper, lower or title, got %q", mode)
	}

	return &Command{
		BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx),
		fields:      fields,
		caser:       caser,
	}, nil
}

// Process converts the configured fields and forwards rec.
func (c *Command) Process(rec *record.Record) (bool, error) {
	for _, field := range c.fields {
		values := rec.Get(field)
		if len(values) == 0 {
			continue
		}
		converted := make([]any, len(values))
		for i, v := range values {
			if s, ok := v.(string); ok {
				converted[i] = c.caser.String(s)
			} else {
				converted[i] = v
			}
		}
		rec.RemoveAll(field)
		rec.PutAll(field, converted...)
	}
	return c.ProcessChild(rec)
}

func configError(format string, args ...any) error {
	return cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "%s: %s", Name, fmt.Sprintf(format, args...))
}
