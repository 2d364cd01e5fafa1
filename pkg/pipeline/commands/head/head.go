// Package head implements the head command.
package head

import (
	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Name is the command name.
const Name = "head"

// Command forwards the first limit records of each session and drops the
// rest. A negative limit forwards everything.
type Command struct {
	runtime.BaseCommand
	limit int
	count int
}

// Build creates the command. Options: limit (default -1).
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	limit, err := cfg.Int("limit", -1)
	if err != nil {
		return nil, err
	}
	if limit < -1 {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "%s: limit must be -1 or greater, got %d", Name, limit)
	}
	return &Command{BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx), limit: limit}, nil
}

// Process forwards rec while the limit is not reached.
func (c *Command) Process(rec *record.Record) (bool, error) {
	if c.limit >= 0 && c.count >= c.limit {
		return false, nil
	}
	c.count++
	return c.ProcessChild(rec)
}

// Notify resets the counter when a new session starts.
func (c *Command) Notify(n runtime.Notification) error {
	if n.Kind == runtime.StartSession {
		c.count = 0
	}
	return nil
}
