// Package logcmd implements the logTrace, logDebug, logInfo, logWarn and
// logError commands.
package logcmd

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
	"github.com/wehubfusion/Conduit/pkg/pipeline/commands/internal/fieldref"
	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Command names.
const (
	LogTrace = "logTrace"
	LogDebug = "logDebug"
	LogInfo  = "logInfo"
	LogWarn  = "logWarn"
	LogError = "logError"
)

// Names lists every log command name.
var Names = []string{LogTrace, LogDebug, LogInfo, LogWarn, LogError}

const placeholder = "{}"

// zap has no trace level; trace messages are written at debug.
var levels = map[string]zapcore.Level{
	LogTrace: zapcore.DebugLevel,
	LogDebug: zapcore.DebugLevel,
	LogInfo:  zapcore.InfoLevel,
	LogWarn:  zapcore.WarnLevel,
	LogError: zapcore.ErrorLevel,
}

// Command logs a formatted message and forwards the record unchanged.
type Command struct {
	runtime.BaseCommand
	level  zapcore.Level
	format string
	args   []any
}

// Build creates a log command at the level its name selects.
//
// Options:
//   - format: message in which each "{}" is replaced by the next argument
//   - args: arguments; "@{field}" renders a field's values and "@{}" the
//     whole record
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	level, ok := levels[cfg.Name()]
	if !ok {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "no log level for command %s", cfg.Name())
	}
	format, err := cfg.String("format", "")
	if err != nil {
		return nil, err
	}
	raw, _ := cfg.Raw("args")
	var args []any
	switch v := raw.(type) {
	case nil:
	case []any:
		args = v
	default:
		args = []any{v}
	}
	if n := strings.Count(format, placeholder); n != len(args) {
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig,
			"%s: format has %d placeholders but %d args", cfg.Name(), n, len(args))
	}

	return &Command{
		BaseCommand: runtime.NewBaseCommand(cfg, parent, child, mctx),
		level:       level,
		format:      format,
		args:        args,
	}, nil
}

// Process logs the message if the level is enabled and forwards rec.
func (c *Command) Process(rec *record.Record) (bool, error) {
	if logger := c.Logger(); logger.Core().Enabled(c.level) {
		logger.Log(c.level, c.render(rec), zap.Int("record_fields", rec.Len()))
	}
	return c.ProcessChild(rec)
}

func (c *Command) render(rec *record.Record) string {
	if len(c.args) == 0 {
		return c.format
	}
	var b strings.Builder
	rest := c.format
	for _, arg := range c.args {
		i := strings.Index(rest, placeholder)
		b.WriteString(rest[:i])
		b.WriteString(renderArg(rec, arg))
		rest = rest[i+len(placeholder):]
	}
	b.WriteString(rest)
	return b.String()
}

func renderArg(rec *record.Record, arg any) string {
	values := fieldref.Resolve(rec, arg)
	if len(values) == 1 {
		return fmt.Sprint(values[0])
	}
	return fmt.Sprint(values)
}
