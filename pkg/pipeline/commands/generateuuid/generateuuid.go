// Package generateuuid implements the generateUUID command.
package generateuuid

import (
	"github.com/google/uuid"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Name is the command name.
const Name = "generateUUID"

// Command stores a random UUID in a field.
type Command struct {
	runtime.BaseCommand
	field            string
	preserveExisting bool
	newID            func() (uuid.UUID, error)
}

// Build creates the command.
//
// Options:
//   - field: output field (default "id")
//   - preserveExisting: keep a value that is already present (default true)
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	field, err := cfg.String("field", record.ID)
	if err != nil {
		return nil, err
	}
	if field == "" {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "%s: field must not be empty", Name)
	}
	preserve, err := cfg.Bool("preserveExisting", true)
	if err != nil {
		return nil, err
	}
	return &Command{
		BaseCommand:      runtime.NewBaseCommand(cfg, parent, child, mctx),
		field:            field,
		preserveExisting: preserve,
		newID:            uuid.NewRandom,
	}, nil
}

// Process sets the field and forwards rec.
func (c *Command) Process(rec *record.Record) (bool, error) {
	if c.preserveExisting && rec.Has(c.field) {
		return c.ProcessChild(rec)
	}
	id, err := c.newID()
	if err != nil {
		return false, cerrors.NewError(cerrors.CodeCommandFailed, "cannot generate uuid", err)
	}
	rec.Replace(c.field, id.String())
	return c.ProcessChild(rec)
}
