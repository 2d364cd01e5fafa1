// Package validatefields implements the validateFields command, which checks
// record fields against declared rules.
//
//	- validateFields:
//	    onInvalid: drop          # or fail
//	    fields:
//	      /age: {type: number, required: true, minimum: 0}
//	      /email: {type: string, format: email}
//	      tags: {type: string, maxItems: 5, uniqueItems: true}
//	      id: string
package validatefields

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Name is the command name.
const Name = "validateFields"

// Command forwards records that satisfy every rule. Invalid records are
// dropped, or fail the pipeline when onInvalid is "fail".
type Command struct {
	runtime.BaseCommand
	rules []*rule
	fail  bool
}

// Build creates the command. Options: fields (required), onInvalid.
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	fields, err := cfg.Map("fields")
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "%s: fields must declare at least one rule", Name)
	}
	onInvalid, err := cfg.String("onInvalid", "drop")
	if err != nil {
		return nil, err
	}
	if onInvalid != "drop" && onInvalid != "fail" {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "%s: onInvalid must be drop or fail, got %q", Name, onInvalid)
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &Command{
		BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx),
		fail:        onInvalid == "fail",
	}
	for _, name := range names {
		r, err := parseRule(name, fields[name])
		if err != nil {
			return nil, err
		}
		c.rules = append(c.rules, r)
	}
	return c, nil
}

// Validate returns the violations of rec, in field order.
func (c *Command) Validate(rec *record.Record) []Violation {
	var out []Violation
	for _, r := range c.rules {
		out = append(out, r.check(rec)...)
	}
	return out
}

// Process forwards rec when it has no violations.
func (c *Command) Process(rec *record.Record) (bool, error) {
	violations := c.Validate(rec)
	if len(violations) == 0 {
		return c.ProcessChild(rec)
	}

	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	if c.fail {
		return false, cerrors.Errorf(cerrors.CodeValidationFailed, cerrors.ErrValidationFailed,
			"%d violation(s): %s", len(violations), strings.Join(msgs, "; "))
	}
	c.Logger().Debug("record failed validation", zap.Strings("violations", msgs))
	return false, nil
}
