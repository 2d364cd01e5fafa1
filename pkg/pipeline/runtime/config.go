package runtime

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
)

// PipelineConfig declares one pipeline: an identifier and its commands in order.
type PipelineConfig struct {
	ID             string        `yaml:"id"`
	ImportCommands []string      `yaml:"importCommands"`
	Commands       []CommandSpec `yaml:"commands"`
}

// CommandSpec is a single command entry, written in YAML as a one-key mapping
// from the command name to its options.
type CommandSpec struct {
	Name    string
	Options map[string]any
}

// UnmarshalYAML decodes `- name: {options}` and the bare `- name` form.
func (s *CommandSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value == "" {
			return invalidConfigf("line %d: empty command name", value.Line)
		}
		s.Name = value.Value
		s.Options = map[string]any{}
		return nil
	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return invalidConfigf("line %d: command entry must have exactly one key, got %d", value.Line, len(value.Content)/2)
		}
		s.Name = value.Content[0].Value
		if s.Name == "" {
			return invalidConfigf("line %d: empty command name", value.Line)
		}
		body := value.Content[1]
		if body.Kind == yaml.ScalarNode && body.Tag == "!!null" {
			s.Options = map[string]any{}
			return nil
		}
		if body.Kind != yaml.MappingNode {
			return invalidConfigf("line %d: options of %s must be a mapping", body.Line, s.Name)
		}
		opts := map[string]any{}
		if err := body.Decode(&opts); err != nil {
			return cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "line %d: options of %s: %v", body.Line, s.Name, err)
		}
		s.Options = opts
		return nil
	}
	return invalidConfigf("line %d: command entry must be a mapping", value.Line)
}

// ParsePipelineConfig parses a YAML pipeline declaration.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		if cerrors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, "parse pipeline: %v", err)
	}
	if len(cfg.Commands) == 0 {
		return nil, invalidConfigf("pipeline %q declares no commands", cfg.ID)
	}
	return &cfg, nil
}

// LoadPipelineConfig reads and parses a YAML pipeline file.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	return ParsePipelineConfig(data)
}

// CommandConfig gives a builder typed access to a command's options and
// remembers which keys were read so that unknown options can be rejected.
type CommandConfig struct {
	name    string
	options map[string]any

	mu   sync.Mutex
	used map[string]bool
}

// NewCommandConfig wraps options for the command name.
func NewCommandConfig(name string, options map[string]any) *CommandConfig {
	if options == nil {
		options = map[string]any{}
	}
	return &CommandConfig{name: name, options: options, used: map[string]bool{}}
}

// Name returns the command name.
func (c *CommandConfig) Name() string {
	return c.name
}

// Has reports whether key is present. It does not mark the key as read.
func (c *CommandConfig) Has(key string) bool {
	_, ok := c.options[key]
	return ok
}

// Keys returns all option keys in sorted order.
func (c *CommandConfig) Keys() []string {
	keys := make([]string, 0, len(c.options))
	for k := range c.options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns the value of key and marks it as read.
func (c *CommandConfig) Raw(key string) (any, bool) {
	c.mu.Lock()
	c.used[key] = true
	c.mu.Unlock()
	v, ok := c.options[key]
	return v, ok
}

// String returns a string option or def when absent.
func (c *CommandConfig) String(key, def string) (string, error) {
	v, ok := c.Raw(key)
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", c.typeError(key, "string", v)
	}
	return s, nil
}

// Bool returns a boolean option or def when absent.
func (c *CommandConfig) Bool(key string, def bool) (bool, error) {
	v, ok := c.Raw(key)
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, c.typeError(key, "boolean", v)
	}
	return b, nil
}

// Int returns an integer option or def when absent.
func (c *CommandConfig) Int(key string, def int) (int, error) {
	v, ok := c.Raw(key)
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, c.typeError(key, "integer", v)
}

// Float returns a numeric option or def when absent.
func (c *CommandConfig) Float(key string, def float64) (float64, error) {
	v, ok := c.Raw(key)
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, c.typeError(key, "number", v)
}

// StringSlice returns a list of strings. A single string is accepted as a
// one-element list.
func (c *CommandConfig) StringSlice(key string, def []string) ([]string, error) {
	v, ok := c.Raw(key)
	if !ok || v == nil {
		return def, nil
	}
	switch list := v.(type) {
	case string:
		return []string{list}, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, c.typeError(fmt.Sprintf("%s[%d]", key, i), "string", item)
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return list, nil
	}
	return nil, c.typeError(key, "list of strings", v)
}

// Map returns a mapping option, or nil when absent.
func (c *CommandConfig) Map(key string) (map[string]any, error) {
	v, ok := c.Raw(key)
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, c.typeError(key, "mapping", v)
	}
	return m, nil
}

// Unused returns the keys no getter has read, sorted.
func (c *CommandConfig) Unused() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for k := range c.options {
		if !c.used[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Validate fails when the configuration carries keys the builder never read.
func (c *CommandConfig) Validate() error {
	if unused := c.Unused(); len(unused) > 0 {
		return invalidConfigf("command %s: unknown options %v", c.name, unused)
	}
	return nil
}

func (c *CommandConfig) typeError(key, want string, got any) error {
	return invalidConfigf("command %s: option %s must be a %s, got %T", c.name, key, want, got)
}

func invalidConfigf(format string, args ...any) error {
	return cerrors.Errorf(cerrors.CodeInvalidConfig, cerrors.ErrInvalidConfig, format, args...)
}
