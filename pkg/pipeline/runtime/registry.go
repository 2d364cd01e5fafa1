package runtime

import (
	"fmt"
	"sort"
	"sync"

	cerrors "github.com/wehubfusion/Conduit/pkg/errors"
)

// Builder constructs a command. cfg holds the command's options, parent
// refers to its predecessor, child is its already-built successor.
type Builder func(cfg *CommandConfig, parent NodeRef, child Command, mctx *Context) (Command, error)

// Registry maps command names to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register binds builder to each of names. Registering a name twice panics.
func (r *Registry) Register(builder Builder, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		if _, exists := r.builders[name]; exists {
			panic(fmt.Sprintf("command %q already registered", name))
		}
		r.builders[name] = builder
	}
}

// Lookup returns the builder registered under name.
func (r *Registry) Lookup(name string) (Builder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	builder, ok := r.builders[name]
	if !ok {
		return nil, cerrors.Errorf(cerrors.CodeUnknownCommand, cerrors.ErrUnknownCommand, "no builder registered for %q", name)
	}
	return builder, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
