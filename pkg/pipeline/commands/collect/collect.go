// Package collect implements a command that keeps a copy of every record it
// sees. It serves as a chain tail in tests and embedding programs.
package collect

import (
	"sync"

	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// Name is the command name.
const Name = "collect"

// Collector stores copies of the records it receives.
type Collector struct {
	name  string
	child runtime.Command

	mu       sync.Mutex
	records  []*record.Record
	commits  int
	sessions int
	shutdown bool
}

// New creates a collector for use as a chain's final child.
func New() *Collector {
	return &Collector{name: Name}
}

// Build creates a collector declared inside a pipeline. It forwards records
// to its successor after storing them.
func Build(cfg *runtime.CommandConfig, parent runtime.NodeRef, child runtime.Command, mctx *runtime.Context) (runtime.Command, error) {
	return &Collector{name: cfg.Name(), child: child}, nil
}

// Name returns the command name.
func (c *Collector) Name() string {
	return c.name
}

// Process stores a copy of rec.
func (c *Collector) Process(rec *record.Record) (bool, error) {
	c.mu.Lock()
	c.records = append(c.records, rec.Copy())
	c.mu.Unlock()

	if c.child == nil {
		return true, nil
	}
	return c.child.Process(rec)
}

// Notify clears the stored records on rollback and counts commits and sessions.
func (c *Collector) Notify(n runtime.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch n.Kind {
	case runtime.RollbackTransaction:
		c.records = nil
	case runtime.CommitTransaction:
		c.commits++
	case runtime.StartSession:
		c.sessions++
	case runtime.Shutdown:
		c.shutdown = true
	}
	return nil
}

// Records returns the stored records in arrival order.
func (c *Collector) Records() []*record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*record.Record, len(c.records))
	copy(out, c.records)
	return out
}

// First returns the first stored record, or nil.
func (c *Collector) First() *record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.records) == 0 {
		return nil
	}
	return c.records[0]
}

// Len returns the number of stored records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Commits returns the number of CommitTransaction notifications seen.
func (c *Collector) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

// Sessions returns the number of StartSession notifications seen.
func (c *Collector) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions
}

// IsShutdown reports whether a Shutdown notification was received.
func (c *Collector) IsShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdown
}

// Reset discards stored records and counters.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
	c.commits = 0
	c.sessions = 0
	c.shutdown = false
}
