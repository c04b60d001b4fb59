// Package selection drives the snap-assist tile picker: it walks the picker's
// focus cycle in ordered matching phases, falls back to a bounded
// accessibility-tree search, and records every observation in a bounded trace
// so a failed run can be diagnosed after the fact.
package selection

import (
	"os"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/snapdock/snapdock/internal/geometry"
)

var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "selection",
	})
}

// SetLogLevel sets the logging level for the selection package.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// Phase identifies which matching pass produced an observation.
type Phase string

const (
	PhaseSpecific Phase = "specific"
	PhaseAll      Phase = "all"
	PhaseRelaxed  Phase = "relaxed"
	PhaseTree     Phase = "tree"
)

// Method is how a matched tile was activated.
type Method string

const (
	// MethodNone marks a synthetic success that touched no UI, such as a
	// skip because the requested split is already in place.
	MethodNone      Method = "none"
	MethodClick     Method = "click"
	MethodConfirm   Method = "confirm"
	MethodTreeClick Method = "tree-click"
)

// Reason is the closed failure taxonomy. A Result carries exactly one.
type Reason string

const (
	ReasonNone Reason = ""
	// ReasonAccessibilityUnavailable means the platform accessibility
	// subsystem could not be reached at all.
	ReasonAccessibilityUnavailable Reason = "accessibility-unavailable"
	// ReasonPickerAbsent means focus never moved: the picker UI was not
	// on screen when the walk ran.
	ReasonPickerAbsent Reason = "picker-absent"
	// ReasonTokensNotFound means the picker was walked but no candidate
	// name contained a requested token.
	ReasonTokensNotFound Reason = "tokens-not-found"
	ReasonTimeout        Reason = "timeout"
	ReasonDebounced      Reason = "debounced"
	// ReasonGeometryMismatch means a tile was activated but the resulting
	// window placement did not verify against the work area.
	ReasonGeometryMismatch Reason = "geometry-mismatch"
)

// Observation is one focus read or tree visit.
type Observation struct {
	Phase       Phase
	Step        int
	Name        string
	Rect        *geometry.Rect
	PID         uint32
	ControlKind uint32
	Matched     bool
}

// traceCap bounds how many recent observations a trace retains. The totals
// keep counting past the cap.
const traceCap = 64

// summaryCap bounds the trace summary carried on a Result.
const summaryCap = 12

// Trace is a bounded ring of recent observations plus running totals. Not
// safe for concurrent use; one walk owns one trace.
type Trace struct {
	ring  [traceCap]Observation
	head  int
	count int

	Steps        int
	FocusChanges int
	UniqueNames  []string
}

// Record appends an observation, evicting the oldest past the cap.
func (t *Trace) Record(o Observation) {
	t.ring[t.head] = o
	t.head = (t.head + 1) % traceCap
	if t.count < traceCap {
		t.count++
	}
	t.Steps++
}

// SawName notes a focus read after the first, tracking focus changes and the
// distinct-name set. Returns true when the name was not seen before.
func (t *Trace) SawName(name, last string) bool {
	if name == last {
		return false
	}
	t.FocusChanges++
	return t.AddUnique(name)
}

// AddUnique records a distinct name without counting a focus change. Used for
// the very first read of a run and for tree visits.
func (t *Trace) AddUnique(name string) bool {
	if name == "" || slices.Contains(t.UniqueNames, name) {
		return false
	}
	t.UniqueNames = append(t.UniqueNames, name)
	return true
}

// Recent returns the retained observations, oldest first.
func (t *Trace) Recent() []Observation {
	out := make([]Observation, 0, t.count)
	start := t.head - t.count
	if start < 0 {
		start += traceCap
	}
	for i := 0; i < t.count; i++ {
		out = append(out, t.ring[(start+i)%traceCap])
	}
	return out
}

// Summary returns at most summaryCap of the most recent observations,
// oldest first. This is what a Result carries.
func (t *Trace) Summary() []Observation {
	recent := t.Recent()
	if len(recent) > summaryCap {
		recent = recent[len(recent)-summaryCap:]
	}
	return recent
}

// Result is the outcome of one selection run. Failure is data: Matched false
// with a Reason, never a panic.
type Result struct {
	ID        string
	Matched   bool
	Method    Method
	Phase     Phase
	FinalName string
	Reason    Reason

	FocusChanges int
	UniqueNames  []string
	Summary      []Observation

	// NearMisses holds names sampled during the tree fallback that did not
	// match, for token tuning.
	NearMisses []string
}
