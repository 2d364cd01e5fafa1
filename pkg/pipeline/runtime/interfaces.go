package runtime

import "github.com/wehubfusion/Conduit/pkg/record"

// Command is one stage of a pipeline.
type Command interface {
	// Process handles rec and, on success, forwards it (or a replacement) to
	// the successor, returning the successor's result. A false result drops
	// the record. A non-nil error is fatal and is always paired with false.
	Process(rec *record.Record) (bool, error)

	// Notify receives lifecycle notifications broadcast by the Context.
	Notify(n Notification) error

	// Name returns the name the command was declared with.
	Name() string
}

// ExceptionHandler decides what happens to a fatal error raised while
// processing a record. Returning nil swallows the error and the record is
// treated as dropped; returning an error makes it terminal for the caller.
type ExceptionHandler interface {
	Handle(err error, rec *record.Record) error
}

// ExceptionHandlerFunc adapts a function to ExceptionHandler.
type ExceptionHandlerFunc func(err error, rec *record.Record) error

// Handle calls f.
func (f ExceptionHandlerFunc) Handle(err error, rec *record.Record) error {
	return f(err, rec)
}

// tail is the implicit successor of a chain built without a final command.
type tail struct{}

func (tail) Process(rec *record.Record) (bool, error) { return true, nil }
func (tail) Notify(n Notification) error              { return nil }
func (tail) Name() string                             { return "tail" }

// Ensure tail implements Command
var _ Command = tail{}
