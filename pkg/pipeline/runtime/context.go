package runtime

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
)

// Context holds the services shared by every command of one chain instance.
// It is passed to builders explicitly and is never owned by a command.
type Context struct {
	logger   *zap.Logger
	handler  ExceptionHandler
	metrics  *Metrics
	tracer   trace.Tracer
	settings map[string]any

	mu       sync.RWMutex
	commands []Command
	bound    bool
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLogger sets the logger. Commands receive named children of it.
func WithLogger(logger *zap.Logger) ContextOption {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithExceptionHandler sets the policy applied to fatal record errors.
func WithExceptionHandler(handler ExceptionHandler) ContextOption {
	return func(c *Context) {
		if handler != nil {
			c.handler = handler
		}
	}
}

// WithMetrics sets the metrics instruments.
func WithMetrics(metrics *Metrics) ContextOption {
	return func(c *Context) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// WithTracer sets the tracer used for chain spans.
func WithTracer(tracer trace.Tracer) ContextOption {
	return func(c *Context) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithSettings sets free-form values visible to every command.
func WithSettings(settings map[string]any) ContextOption {
	return func(c *Context) {
		for k, v := range settings {
			c.settings[k] = v
		}
	}
}

// NewContext creates a context. Without options it logs nowhere, reports
// fatal errors to the caller, and registers metrics on a private registry.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("conduit/pipeline"),
		settings: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.handler == nil {
		c.handler = NewDefaultExceptionHandler(c.logger)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return c
}

// Logger returns the pipeline logger.
func (c *Context) Logger() *zap.Logger {
	return c.logger
}

// ExceptionHandler returns the fatal-error policy.
func (c *Context) ExceptionHandler() ExceptionHandler {
	return c.handler
}

// Metrics returns the metrics instruments.
func (c *Context) Metrics() *Metrics {
	return c.metrics
}

// Tracer returns the tracer.
func (c *Context) Tracer() trace.Tracer {
	return c.tracer
}

// Setting returns a free-form value set with WithSettings.
func (c *Context) Setting(key string) (any, bool) {
	v, ok := c.settings[key]
	return v, ok
}

// Commands returns the commands bound to this context in chain order.
func (c *Context) Commands() []Command {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// Notify broadcasts n to every command of the chain in chain order. It stops
// at the first command that fails and returns that error.
func (c *Context) Notify(n Notification) error {
	c.metrics.countNotification(n.Kind)
	for _, cmd := range c.Commands() {
		if err := cmd.Notify(n); err != nil {
			c.logger.Error("notification failed",
				zap.String("command", cmd.Name()),
				zap.Stringer("kind", n.Kind),
				zap.Error(err))
			return cerrors.Errorf(cerrors.CodeNotificationFail, err,
				"command %s failed to handle %s", cmd.Name(), n.Kind)
		}
	}
	return nil
}

func (c *Context) isBound() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bound
}

// bind attaches the commands of a chain. A context serves a single chain.
func (c *Context) bind(commands []Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound {
		return cerrors.NewError(cerrors.CodeInvalidConfig, "context is already bound to a chain", cerrors.ErrContextBound)
	}
	c.commands = commands
	c.bound = true
	return nil
}
