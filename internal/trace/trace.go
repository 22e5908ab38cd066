// Package trace implements the tracer contract from spec §4.7: a narrow
// Sink interface accepting Event records one at a time in step order,
// detached automatically on failure so a misbehaving sink can never
// back-pressure the runtime.
package trace

import (
	"sync"

	"termweave/internal/term"
)

// Record is the JSON-ready shape of a rewrite step, independent of any
// particular runtime.Event type so this package has no import-cycle back
// into internal/runtime.
type Record struct {
	Step        int      `json:"step"`
	Rule        string   `json:"rule"`
	Before      term.ID  `json:"before"`
	BeforeSym   string   `json:"before_sym"`
	BeforeScale int      `json:"before_scale"`
	After       []term.ID `json:"after"`
	Scale       int      `json:"scale"`
	TimestampNS int64    `json:"timestamp_ns"`
}

// Sink accepts Event records one at a time in step order. Record may
// return an error; the caller (DetachingSink) is responsible for removing
// a sink that does, per spec §4.7 — a Sink itself never retries and never
// blocks.
type Sink interface {
	Record(r Record) error
	Close() error
}

// DetachingSink wraps one or more Sinks and removes any sink that errors,
// recording a one-time warning rather than letting a failing sink slow or
// crash the run. This mirrors the wider codebase's SafeRecord: tracing is
// observational and must never affect execution.
type DetachingSink struct {
	mu      sync.Mutex
	sinks   []Sink
	names   []string
	onWarn  func(name string, err error)
	warned  map[string]struct{}
}

// NewDetachingSink wraps sinks, pairing each with a name used in the
// one-time warning onWarn receives if that sink ever fails.
func NewDetachingSink(onWarn func(name string, err error), named map[string]Sink) *DetachingSink {
	d := &DetachingSink{onWarn: onWarn, warned: make(map[string]struct{})}
	for name, s := range named {
		d.sinks = append(d.sinks, s)
		d.names = append(d.names, name)
	}
	return d
}

// Record fans r out to every still-attached sink, detaching any sink whose
// Record call errors.
func (d *DetachingSink) Record(r Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	live := d.sinks[:0:0]
	liveNames := d.names[:0:0]
	for i, s := range d.sinks {
		if err := s.Record(r); err != nil {
			name := d.names[i]
			if _, seen := d.warned[name]; !seen {
				d.warned[name] = struct{}{}
				if d.onWarn != nil {
					d.onWarn(name, err)
				}
			}
			continue
		}
		live = append(live, s)
		liveNames = append(liveNames, d.names[i])
	}
	d.sinks = live
	d.names = liveNames
}

// Close closes every still-attached sink, collecting no errors (a sink
// that fails to close is simply dropped — tracing failures are never
// fatal to the run).
func (d *DetachingSink) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sinks {
		_ = s.Close()
	}
	d.sinks = nil
	d.names = nil
}

// Active reports how many sinks remain attached.
func (d *DetachingSink) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sinks)
}
