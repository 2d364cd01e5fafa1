package runtime

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// NodeRef refers to a command's position in a chain without owning it. The
// zero value refers to nothing and is what the head command receives.
type NodeRef struct {
	chain *Chain
	index int
}

// Valid reports whether the reference points at a command.
func (r NodeRef) Valid() bool {
	return r.chain != nil && r.index >= 0 && r.index < len(r.chain.nodes)
}

// Index returns the position in the chain, or -1 for the zero value.
func (r NodeRef) Index() int {
	if !r.Valid() {
		return -1
	}
	return r.index
}

// Name returns the declared name of the referenced command.
func (r NodeRef) Name() string {
	if !r.Valid() {
		return ""
	}
	return r.chain.nodes[r.index].name
}

// Command returns the referenced command. It is nil while the chain is still
// being built, since predecessors are constructed after their successors.
func (r NodeRef) Command() Command {
	if !r.Valid() {
		return nil
	}
	return r.chain.nodes[r.index].cmd
}

// node sits between a command and its predecessor and counts outcomes.
type node struct {
	chain *Chain
	name  string
	cmd   Command
}

func (n *node) Process(rec *record.Record) (bool, error) {
	ok, err := n.cmd.Process(rec)
	if err != nil {
		ok = false
	}
	n.chain.mctx.metrics.recordOutcome(n.chain.id, n.name, ok, err)
	return ok, err
}

func (n *node) Notify(notification Notification) error {
	return n.cmd.Notify(notification)
}

func (n *node) Name() string {
	return n.name
}

// Chain is a built pipeline: the head command plus bookkeeping.
type Chain struct {
	id    string
	nodes []*node
	head  Command
	mctx  *Context
}

// Build constructs the chain declared by cfg. Every command name is resolved
// before any builder runs. Builders are invoked from the last command to the
// first, so each receives its live successor. finalChild succeeds the last
// declared command; when nil, records that reach the end are accepted.
func Build(reg *Registry, cfg *PipelineConfig, mctx *Context, finalChild Command) (*Chain, error) {
	if cfg == nil || len(cfg.Commands) == 0 {
		return nil, invalidConfigf("pipeline declares no commands")
	}
	if mctx == nil {
		mctx = NewContext()
	}
	if mctx.isBound() {
		return nil, cerrors.NewError(cerrors.CodeInvalidConfig, "context is already bound to a chain", cerrors.ErrContextBound)
	}

	builders := make([]Builder, len(cfg.Commands))
	for i, spec := range cfg.Commands {
		builder, err := reg.Lookup(spec.Name)
		if err != nil {
			return nil, err
		}
		builders[i] = builder
	}

	chain := &Chain{
		id:    cfg.ID,
		nodes: make([]*node, len(cfg.Commands)),
		mctx:  mctx,
	}
	for i, spec := range cfg.Commands {
		chain.nodes[i] = &node{chain: chain, name: spec.Name}
	}

	var child Command = tail{}
	if finalChild != nil {
		child = finalChild
	}
	for i := len(cfg.Commands) - 1; i >= 0; i-- {
		spec := cfg.Commands[i]
		ccfg := NewCommandConfig(spec.Name, spec.Options)
		parent := NodeRef{}
		if i > 0 {
			parent = NodeRef{chain: chain, index: i - 1}
		}

		cmd, err := builders[i](ccfg, parent, child, mctx)
		if err != nil {
			if cerrors.CodeOf(err) != "" {
				return nil, err
			}
			return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, err, "build command %s (#%d)", spec.Name, i+1)
		}
		if cmd == nil {
			return nil, invalidConfigf("builder for %s returned no command", spec.Name)
		}
		if err := ccfg.Validate(); err != nil {
			return nil, err
		}

		chain.nodes[i].cmd = cmd
		child = chain.nodes[i]
	}
	chain.head = child

	commands := make([]Command, 0, len(chain.nodes)+1)
	for _, n := range chain.nodes {
		commands = append(commands, n.cmd)
	}
	if finalChild != nil {
		commands = append(commands, finalChild)
	}
	if err := mctx.bind(commands); err != nil {
		return nil, err
	}

	mctx.Logger().Debug("pipeline built",
		zap.String("pipeline", cfg.ID),
		zap.Strings("commands", chain.Names()),
		zap.Strings("import_commands", cfg.ImportCommands))

	return chain, nil
}

// ID returns the pipeline identifier.
func (c *Chain) ID() string {
	return c.id
}

// Len returns the number of declared commands.
func (c *Chain) Len() int {
	return len(c.nodes)
}

// Names returns the declared command names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.nodes))
	for i, n := range c.nodes {
		names[i] = n.name
	}
	return names
}

// Context returns the chain's pipeline context.
func (c *Chain) Context() *Context {
	return c.mctx
}

// Process pushes rec into the head of the chain.
func (c *Chain) Process(rec *record.Record) (bool, error) {
	return c.ProcessContext(context.Background(), rec)
}

// ProcessContext pushes rec into the head of the chain under a span that is a
// child of any span carried by ctx. Fatal errors go through the context's
// ExceptionHandler; its result is returned.
func (c *Chain) ProcessContext(ctx context.Context, rec *record.Record) (bool, error) {
	if rec == nil {
		return false, cerrors.NewError(cerrors.CodeMissingPayload, "nil record", cerrors.ErrMissingPayload)
	}
	_, span := c.mctx.tracer.Start(ctx, "conduit.chain.process",
		trace.WithAttributes(
			attribute.String("conduit.pipeline", c.id),
			attribute.Int("conduit.record.fields", rec.Len()),
		))
	defer span.End()

	start := time.Now()
	ok, err := c.head.Process(rec)
	c.mctx.metrics.observeChain(c.id, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, c.mctx.handler.Handle(err, rec)
	}
	span.SetAttributes(attribute.Bool("conduit.record.passed", ok))
	return ok, nil
}

// Notify broadcasts n to every command of the chain.
func (c *Chain) Notify(n Notification) error {
	return c.mctx.Notify(n)
}
