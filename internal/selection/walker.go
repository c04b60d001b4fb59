package selection

import (
	"strings"
	"time"

	"github.com/snapdock/snapdock/internal/driver"
	"github.com/snapdock/snapdock/internal/geometry"
	"github.com/snapdock/snapdock/internal/token"
)

// Params are the walk tunables. They are configuration, not invariants:
// changing them trades latency against match reliability.
type Params struct {
	// StepsWithSpecific is the per-phase step budget when specific tokens
	// are present; a named document usually sits in a small grid.
	StepsWithSpecific int
	// Steps is the per-phase budget without specific tokens.
	Steps        int
	RelaxedSteps int
	// MinSteps is the floor before any early break may trigger.
	MinSteps int
	// StagnationWindow is how many steps without a new distinct name count
	// as a repetition cycle.
	StagnationWindow int
	// SmallSetMax is the largest distinct-name set still considered a
	// small stable cycle.
	SmallSetMax int
	StepDelay   time.Duration
	// Deadline bounds the whole selection call across all phases.
	Deadline time.Duration

	TreeNodeBudget int
	TreeFanout     int
	TreeSampleCap  int
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		StepsWithSpecific: 14,
		Steps:             18,
		RelaxedSteps:      10,
		MinSteps:          6,
		StagnationWindow:  4,
		SmallSetMax:       3,
		StepDelay:         60 * time.Millisecond,
		Deadline:          2 * time.Second,
		TreeNodeBudget:    800,
		TreeFanout:        50,
		TreeSampleCap:     40,
	}
}

type phaseOutcome int

const (
	// outcomeExhausted means the step budget ran out without a match.
	outcomeExhausted phaseOutcome = iota
	outcomeMatched
	outcomeTimeout
	// outcomeRepetition is the early break on a small stable cycle with no
	// token anywhere in the seen names.
	outcomeRepetition
	// outcomeAbsent is the early break when focus never moved: the picker
	// is not consuming input.
	outcomeAbsent
)

// walker owns one selection run. Focus-read state carries across phases so a
// phase change does not count as a focus change.
type walker struct {
	input    driver.Input
	acc      driver.Accessibility
	params   Params
	deadline time.Time

	trace  Trace
	last   string
	primed bool

	method    Method
	finalName string
}

// runPhase walks the focus cycle under one token set until it matches, the
// budget or deadline runs out, or an early break fires.
func (w *walker) runPhase(phase Phase, set token.MatchSet, limit int) phaseOutcome {
	stagnate := 0
	lastNewUnique := -1

	for step := 0; step < limit; step++ {
		if time.Now().After(w.deadline) {
			return outcomeTimeout
		}

		name, rect, pid, kind := w.readFocus()
		if !w.primed {
			w.trace.AddUnique(name)
			w.primed = true
		} else if w.trace.SawName(name, w.last) {
			lastNewUnique = step
		}

		matched := set.Matches(name)
		w.trace.Record(Observation{
			Phase:       phase,
			Step:        step,
			Name:        name,
			Rect:        rect,
			PID:         pid,
			ControlKind: kind,
			Matched:     matched,
		})
		logger.Debug("focus step", "phase", phase, "step", step, "name", name, "matched", matched)

		if matched {
			w.activate(name, rect)
			return outcomeMatched
		}

		if step >= w.params.MinSteps {
			if w.trace.FocusChanges == 0 {
				return outcomeAbsent
			}
			if w.repetitionCycle(step, lastNewUnique, set) {
				return outcomeRepetition
			}
		}

		w.input.NavigateNext() //nolint:errcheck
		time.Sleep(w.params.StepDelay)
		if name == w.last {
			stagnate++
			if stagnate%2 == 1 {
				w.input.NavigateDown() //nolint:errcheck
				time.Sleep(w.params.StepDelay)
			}
		} else {
			stagnate = 0
		}
		w.last = name
	}
	return outcomeExhausted
}

// repetitionCycle reports a small stable set of tiles, none new for the
// stagnation window, with no token substring anywhere in the seen names.
// Walking further cannot produce a match.
func (w *walker) repetitionCycle(step, lastNewUnique int, set token.MatchSet) bool {
	n := len(w.trace.UniqueNames)
	if n == 0 || n > w.params.SmallSetMax {
		return false
	}
	noNewFor := step
	if lastNewUnique >= 0 {
		noNewFor = step - lastNewUnique
	}
	if noNewFor < w.params.StagnationWindow {
		return false
	}
	return !set.AnyIn(strings.Join(w.trace.UniqueNames, " | "))
}

// readFocus reads the focused element. Errors mean "no information this
// step" and read as an empty name.
func (w *walker) readFocus() (string, *geometry.Rect, uint32, uint32) {
	el, err := w.acc.FocusedElement()
	if err != nil {
		return "", nil, 0, 0
	}
	return el.Name, el.Rect, el.PID, el.ControlKind
}

// activate selects the matched tile: click the center of its bounding box
// when it has one, otherwise send the confirm key.
func (w *walker) activate(name string, rect *geometry.Rect) {
	w.finalName = name
	if rect != nil && !rect.Empty() {
		x, y := rect.Center()
		if err := w.input.ClickAt(x, y); err == nil {
			w.method = MethodClick
			return
		}
	}
	w.input.Confirm() //nolint:errcheck
	w.method = MethodConfirm
}
