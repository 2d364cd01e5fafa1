package filter

import (
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Drop silently discards every record.
type Drop struct {
	runtime.BaseCommand
}

// BuildDrop creates the dropRecord command. It takes no options.
func BuildDrop(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	return &Drop{BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx)}, nil
}

// Process returns false without calling the successor.
func (d *Drop) Process(rec *record.Record) (bool, error) {
	return false, nil
}
