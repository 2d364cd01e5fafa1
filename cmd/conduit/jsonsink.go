package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/wehubfusion/Conduit/pkg/pipeline/runtime"
	"github.com/wehubfusion/Conduit/pkg/record"
)

// jsonSink is the final child of CLI chains. It writes every record that
// reaches the end of the pipeline as one JSON object per line. Attachment
// fields are omitted since they hold raw input payloads.
type jsonSink struct {
	mu      *sync.Mutex
	enc     *json.Encoder
	written *atomic.Int64
}

// newJSONSink returns a sink writing to w. Sinks created with share() write
// to the same encoder, so chains running in parallel never interleave lines.
func newJSONSink(w io.Writer) *jsonSink {
	return &jsonSink{
		mu:      &sync.Mutex{},
		enc:     json.NewEncoder(w),
		written: &atomic.Int64{},
	}
}

// share returns a sink bound to the same output.
func (s *jsonSink) share() *jsonSink {
	cp := *s
	return &cp
}

func (s *jsonSink) Name() string { return "writeJSON" }

func (s *jsonSink) Process(rec *record.Record) (bool, error) {
	out := make(map[string][]any, rec.Len())
	for _, field := range rec.Fields() {
		if strings.HasPrefix(field, "_attachment_") {
			continue
		}
		out[field] = rec.Get(field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(out); err != nil {
		return false, fmt.Errorf("write record: %w", err)
	}
	s.written.Add(1)
	return true, nil
}

func (s *jsonSink) Notify(runtime.Notification) error { return nil }

// Written returns the number of records written through any shared sink.
func (s *jsonSink) Written() int64 {
	return s.written.Load()
}

var _ runtime.Command = (*jsonSink)(nil)
