// Package diag carries non-fatal diagnostics from the core to whoever
// is driving it. Warnings never abort a computation; they are collected
// or printed depending on the installed sink.
package diag

import (
	"fmt"
	"os"
	"sync"
)

type Kind int

const (
	// PlanningDegraded means transform planning fell back to a
	// lower-effort strategy; results are correct but may be slower.
	PlanningDegraded Kind = iota

	// OverspecifiedGrid means the requested antialias cutoff exceeds
	// the usable bandwidth and the mask degenerated to pass-all.
	OverspecifiedGrid
)

func (k Kind) String() string {
	switch k {
	case PlanningDegraded:
		return "planning-degraded"
	case OverspecifiedGrid:
		return "overspecified-grid"
	default:
		return "unknown"
	}
}

type Warning struct {
	Kind Kind
	Msg  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Msg)
}

// Sink receives warnings. Implementations must be safe for concurrent use.
type Sink interface {
	Warn(Warning)
}

// Recorder collects warnings in memory.
type Recorder struct {
	mu       sync.Mutex
	warnings []Warning
}

func (r *Recorder) Warn(w Warning) {
	r.mu.Lock()
	r.warnings = append(r.warnings, w)
	r.mu.Unlock()
}

func (r *Recorder) Warnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Warning, len(r.warnings))
	copy(out, r.warnings)
	return out
}

func (r *Recorder) Has(k Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.warnings {
		if w.Kind == k {
			return true
		}
	}
	return false
}

type stderrSink struct{ mu sync.Mutex }

func (s *stderrSink) Warn(w Warning) {
	s.mu.Lock()
	fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	s.mu.Unlock()
}

// Stderr returns a sink that prints each warning to standard error.
func Stderr() Sink { return &stderrSink{} }

type discardSink struct{}

func (discardSink) Warn(Warning) {}

// Discard drops all warnings.
var Discard Sink = discardSink{}

func Warnf(s Sink, k Kind, format string, args ...any) {
	if s == nil {
		return
	}
	s.Warn(Warning{Kind: k, Msg: fmt.Sprintf(format, args...)})
}
