package runtime

import (
	"go.uber.org/zap"

	"github.com/wehubfusion/Conduit/pkg/record"
)

// BaseCommand provides common functionality for commands.
// Embed this in your custom command implementations.
type BaseCommand struct {
	name   string
	config *CommandConfig
	parent NodeRef
	child  Command
	mctx   *Context
	logger *zap.Logger
}

// NewBaseCommand creates a new base command from its build arguments.
func NewBaseCommand(cfg *CommandConfig, parent NodeRef, child Command, mctx *Context) BaseCommand {
	if mctx == nil {
		mctx = NewContext()
	}
	if child == nil {
		child = tail{}
	}
	return BaseCommand{
		name:   cfg.Name(),
		config: cfg,
		parent: parent,
		child:  child,
		mctx:   mctx,
		logger: mctx.Logger().Named(cfg.Name()),
	}
}

// Name returns the command name.
func (b *BaseCommand) Name() string {
	return b.name
}

// Config returns the command configuration.
func (b *BaseCommand) Config() *CommandConfig {
	return b.config
}

// Parent returns a reference to the predecessor in the chain.
func (b *BaseCommand) Parent() NodeRef {
	return b.parent
}

// Child returns the successor.
func (b *BaseCommand) Child() Command {
	return b.child
}

// Context returns the pipeline context.
func (b *BaseCommand) Context() *Context {
	return b.mctx
}

// Logger returns the command's named logger.
func (b *BaseCommand) Logger() *zap.Logger {
	return b.logger
}

// ProcessChild forwards rec to the successor.
func (b *BaseCommand) ProcessChild(rec *record.Record) (bool, error) {
	return b.child.Process(rec)
}

// Notify ignores notifications. Commands with session state override it.
func (b *BaseCommand) Notify(n Notification) error {
	return nil
}
