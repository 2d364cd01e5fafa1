// Package commands assembles the built-in command set.
package commands

import (
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/collect"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/convertcase"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/converttimestamp"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/extractavrotree"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/extractjsonpaths"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/filter"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/generateuuid"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/head"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/javascript"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/logcmd"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/removefields"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/validatefields"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/values"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
)

// NewRegistry creates a registry with every built-in command registered.
func NewRegistry() *runtime.Registry {
	reg := runtime.NewRegistry()

	// Readers
	reg.Register(extractavrotree.Build, extractavrotree.Name)
	reg.Register(extractjsonpaths.Build, extractjsonpaths.Name)

	// Field manipulation
	reg.Register(values.Build, values.SetValues, values.AddValues, values.AddValuesIfAbsent)
	reg.Register(removefields.Build, removefields.Name)
	reg.Register(generateuuid.Build, generateuuid.Name)
	reg.Register(convertcase.Build, convertcase.Name)
	reg.Register(converttimestamp.Build, converttimestamp.Name)
	reg.Register(javascript.Build, javascript.Name)

	// Filters
	reg.Register(filter.Build, filter.Equals, filter.Contains)
	reg.Register(filter.BuildDrop, filter.DropRecord)
	reg.Register(head.Build, head.Name)
	reg.Register(validatefields.Build, validatefields.Name)

	// Observation
	reg.Register(logcmd.Build, logcmd.Names...)
	reg.Register(collect.Build, collect.Name)

	return reg
}
