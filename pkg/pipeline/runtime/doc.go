// Package runtime provides the command-chain execution runtime for Conduit.
//
// A pipeline is an ordered list of named commands declared in configuration.
// Each name is resolved through a Registry to a Builder, and builders are
// invoked back-to-front so every command is constructed with a live reference
// to its successor. At runtime a record enters at the head of the Chain and
// each command pushes it (or a replacement) to the next one.
//
// # Per-Record Contract
//
// Command.Process returns (bool, error):
//
//   - (true, nil): the record was handled and forwarded; downstream succeeded
//   - (false, nil): the record was dropped at or after this command
//   - (false, err): a fatal error; the run cannot continue
//
// Filtering is never signalled through the error. Errors are reserved for the
// unrecoverable class: missing payloads, unsupported value kinds, exceeded
// nesting depth. Chain.Process routes them through the Context's
// ExceptionHandler.
//
// # Build-Time Contract
//
// Unknown command names and malformed or unknown options fail Build. All names
// are resolved before any command is constructed, and every option a builder
// did not read is reported as an error.
//
// # Notifications
//
// Context.Notify broadcasts a Notification to every command of the chain in
// declared order, synchronously and independently of record flow. Commands use
// it for session-scoped bookkeeping such as resetting counters.
//
// # Concurrency
//
// A Chain is driven synchronously: Process calls form a plain call stack. One
// chain instance is meant to be driven by one goroutine at a time; build one
// chain per goroutine when processing in parallel. Context metrics and
// notification dispatch are safe for concurrent use.
//
// # Example Usage
//
//	reg := commands.NewRegistry()
//	cfg, err := runtime.ParsePipelineConfig(yamlBytes)
//	mctx := runtime.NewContext(runtime.WithLogger(logger))
//	chain, err := runtime.Build(reg, cfg, mctx, sink)
//
//	ok, err := chain.Process(rec)
//
// # Implementing Custom Commands
//
// Embed BaseCommand and register a Builder:
//
//	type MyCommand struct {
//	    runtime.BaseCommand
//	    field string
//	}
//
//	func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
//	    field, err := cfg.String("field", "id")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &MyCommand{BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx), field: field}, nil
//	}
//
//	func (c *MyCommand) Process(rec *record.Record) (bool, error) {
//	    rec.Put(c.field, "value")
//	    return c.ProcessChild(rec)
//	}
package runtime
