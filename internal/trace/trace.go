// Package trace records a deterministic event log of one request's pipeline:
// which stages ran, what they produced, and how the request ended.
//
// Events capture logical transitions only. No timestamps, durations, process
// ids or other runtime-dependent values appear; two identical requests
// produce byte-identical traces.
package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// EventKind is the stable discriminator for Event. The string values are part
// of the trace's canonical bytes; do not rename.
type EventKind string

const (
	EventUnitCompiled   EventKind = "UnitCompiled"
	EventCompileFailed  EventKind = "CompileFailed"
	EventScriptWritten  EventKind = "ScriptWritten"
	EventEngineExecuted EventKind = "EngineExecuted"
	EventImageWritten   EventKind = "ImageWritten"
	EventImageFailed    EventKind = "ImageFailed"
)

// Event is a single logical transition of the pipeline.
type Event struct {
	Kind EventKind

	// Stage names the shader stage for compile events.
	Stage string

	// Path is the artifact, script or image path the event refers to.
	Path string

	// Detail is a stable, logical detail code (e.g. "exit=1").
	// Never an error string or anything runtime-dependent.
	Detail string
}

// RequestTrace is the ordered record of one request. The pipeline is strictly
// sequential, so recording order is the canonical order; no sorting applies.
type RequestTrace struct {
	Events []Event
}

// Validate checks basic invariants and returns a descriptive error.
func (t *RequestTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	for i, e := range t.Events {
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
	}
	return nil
}

// CanonicalJSON returns the canonical JSON encoding of the trace: fixed field
// order, absent optional fields omitted, one event per line of the array.
func (t RequestTrace) CanonicalJSON() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("{\"events\":[")
	for i, e := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  ")
		entry := map[string]string{"kind": string(e.Kind)}
		if e.Stage != "" {
			entry["stage"] = e.Stage
		}
		if e.Path != "" {
			entry["path"] = e.Path
		}
		if e.Detail != "" {
			entry["detail"] = e.Detail
		}
		// encoding/json sorts map keys, which fixes the field order.
		b, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	if len(t.Events) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("]}\n")
	return buf.Bytes(), nil
}

// Sink is the minimal interface the pipeline depends on.
//
// Record must be inert: it must not panic and must not return errors. The
// caller assumes Record may be a no-op.
type Sink interface {
	Record(event Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Record(Event) {}

// Recorder is a concurrency-safe in-memory collector.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Snapshot returns a point-in-time copy of all recorded events.
func (r *Recorder) Snapshot() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Trace builds a RequestTrace from the currently recorded events. The
// returned trace is independent from the recorder.
func (r *Recorder) Trace() RequestTrace {
	return RequestTrace{Events: r.Snapshot()}
}
