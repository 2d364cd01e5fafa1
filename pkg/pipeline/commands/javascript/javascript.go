// Package javascript implements the js command, which runs a JavaScript
// function body against each record.
//
// The script sees the record as the object `record`, mapping each field name
// to an array of values. It may add, replace or delete fields and must return
// a boolean: true forwards the record, false drops it.
//
//	commands:
//	  - js:
//	      script: |
//	        record.total = [record.price[0] * record.qty[0]];
//	        return record.total[0] > 100;
package javascript

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Name is the command name.
const Name = "js"

// DefaultTimeout bounds a single script invocation.
const DefaultTimeout = 5 * time.Second

// globals removed from every runtime before the script is loaded.
var dangerousGlobals = []string{
	"require",
	"module",
	"exports",
	"process",
	"global",
	"__dirname",
	"__filename",
	"Buffer",
	"setImmediate",
	"clearImmediate",
}

// Command evaluates a compiled script per record. A Command owns one VM and
// must be driven by one goroutine at a time, like the chain it belongs to.
type Command struct {
	runtime.BaseCommand
	vm      *goja.Runtime
	fn      goja.Callable
	timeout time.Duration
}

// Build compiles the script.
//
// Options:
//   - script: JavaScript function body (required)
//   - timeout: per-record limit as a Go duration string (default "5s")
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	script, err := cfg.String("script", "")
	if err != nil {
		return nil, err
	}
	if script == "" {
		return nil, configError("script must not be empty")
	}
	timeoutStr, err := cfg.String("timeout", DefaultTimeout.String())
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil || timeout <= 0 {
		return nil, configError("invalid timeout %q", timeoutStr)
	}

	c := &Command{
		BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx),
		vm:          goja.New(),
		timeout:     timeout,
	}

	program, err := goja.Compile(Name, "(function(record) {\n"+script+"\n})", true)
	if err != nil {
		return nil, configError("script does not compile: %v", err)
	}
	if err := c.sandbox(); err != nil {
		return nil, err
	}
	value, err := c.vm.RunProgram(program)
	if err != nil {
		return nil, configError("script does not load: %v", err)
	}
	fn, ok := goja.AssertFunction(value)
	if !ok {
		return nil, configError("script is not a function")
	}
	c.fn = fn
	return c, nil
}

func (c *Command) sandbox() error {
	for _, name := range dangerousGlobals {
		if err := c.vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	console := c.vm.NewObject()
	logger := c.Logger()
	if err := console.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.Export()
		}
		logger.Debug(fmt.Sprint(args...))
		return goja.Undefined()
	}); err != nil {
		return err
	}
	return c.vm.Set("console", console)
}

// Process runs the script and forwards rec when it returns true.
func (c *Command) Process(rec *record.Record) (bool, error) {
	obj := c.toObject(rec)

	result, err := c.call(obj)
	if err != nil {
		return false, err
	}
	c.fromObject(obj, rec)

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return false, cerrors.NewError(cerrors.CodeCommandFailed, "script returned no value, expected a boolean", nil)
	}
	keep, ok := result.Export().(bool)
	if !ok {
		return false, cerrors.NewError(cerrors.CodeCommandFailed,
			fmt.Sprintf("script returned %T, expected a boolean", result.Export()), nil)
	}
	if !keep {
		return false, nil
	}
	return c.ProcessChild(rec)
}

// call invokes the script under the timeout, interrupting the VM when it
// expires.
func (c *Command) call(obj *goja.Object) (result goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = cerrors.NewError(cerrors.CodeCommandFailed, fmt.Sprintf("panic during script execution: %v", r), nil)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	done := make(chan struct{})
	exited := make(chan struct{})
	interrupted := false
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			interrupted = true
			c.vm.Interrupt("execution timeout")
		case <-done:
		}
	}()

	result, err = c.fn(goja.Undefined(), obj)
	close(done)
	<-exited
	c.vm.ClearInterrupt()

	if err != nil {
		if interrupted {
			return nil, cerrors.NewError(cerrors.CodeCommandFailed, fmt.Sprintf("script timed out after %s", c.timeout), err)
		}
		c.Logger().Debug("script failed", zap.Error(err))
		return nil, cerrors.NewError(cerrors.CodeCommandFailed, "script failed", err)
	}
	return result, nil
}

func (c *Command) toObject(rec *record.Record) *goja.Object {
	obj := c.vm.NewObject()
	for _, field := range rec.Fields() {
		values := rec.Get(field)
		items := make([]any, len(values))
		for i, v := range values {
			items[i] = c.vm.ToValue(v)
		}
		_ = obj.Set(field, c.vm.NewArray(items...))
	}
	return obj
}

// fromObject writes the script's view of the record back into rec. A field
// set to a non-array value holds that single value; null or undefined
// removes the field.
func (c *Command) fromObject(obj *goja.Object, rec *record.Record) {
	keys := obj.Keys()
	sort.Strings(keys)

	present := make(map[string]bool, len(keys))
	for _, key := range keys {
		present[key] = true
		v := obj.Get(key)
		rec.RemoveAll(key)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		switch exported := v.Export().(type) {
		case []any:
			rec.PutAll(key, exported...)
		default:
			rec.Put(key, exported)
		}
	}
	for _, field := range rec.Fields() {
		if !present[field] {
			rec.RemoveAll(field)
		}
	}
}

func configError(format string, args ...any) error {
	return cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "%s: %s", Name, fmt.Sprintf(format, args...))
}
