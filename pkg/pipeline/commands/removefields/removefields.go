// Package removefields implements the removeFields command.
package removefields

import (
	"regexp"
	"strings"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Name is the command name.
const Name = "removeFields"

// Command removes every field that matches the blacklist and does not match
// the whitelist.
//
// Patterns are globs where "*" matches any run of characters, including "/".
// A "regex:" prefix selects a regular expression, a "literal:" prefix an
// exact name.
type Command struct {
	runtime.BaseCommand
	blacklist []*regexp.Regexp
	whitelist []*regexp.Regexp
}

// Build creates the command. At least one of blacklist or whitelist is
// required; a whitelist alone removes everything it does not name.
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	black, err := cfg.StringSlice("blacklist", nil)
	if err != nil {
		return nil, err
	}
	white, err := cfg.StringSlice("whitelist", nil)
	if err != nil {
		return nil, err
	}
	if len(black) == 0 && len(white) == 0 {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "%s: blacklist or whitelist is required", Name)
	}
	if len(black) == 0 {
		black = []string{"*"}
	}

	c := &Command{BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx)}
	if c.blacklist, err = compileAll(black); err != nil {
		return nil, err
	}
	if c.whitelist, err = compileAll(white); err != nil {
		return nil, err
	}
	return c, nil
}

// Process removes matching fields and forwards rec.
func (c *Command) Process(rec *record.Record) (bool, error) {
	for _, field := range rec.Fields() {
		if matchesAny(c.blacklist, field) && !matchesAny(c.whitelist, field) {
			rec.RemoveAll(field)
		}
	}
	return c.ProcessChild(rec)
}

func matchesAny(patterns []*regexp.Regexp, field string) bool {
	for _, p := range patterns {
		if p.MatchString(field) {
			return true
		}
	}
	return false
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compile(p)
		if err != nil {
			return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, err, "%s: invalid pattern %q", Name, p)
		}
		out = append(out, re)
	}
	return out, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	switch {
	case strings.HasPrefix(pattern, "regex:"):
		return regexp.Compile(strings.TrimPrefix(pattern, "regex:"))
	case strings.HasPrefix(pattern, "literal:"):
		return regexp.Compile("^" + regexp.QuoteMeta(strings.TrimPrefix(pattern, "literal:")) + "$")
	}

	var b strings.Builder
	b.WriteString("^")
	for _, part := range strings.Split(pattern, "*") {
		b.WriteString(regexp.QuoteMeta(part))
		b.WriteString(".*")
	}
	expr := strings.TrimSuffix(b.String(), ".*") + "$"
	return regexp.Compile(expr)
}
