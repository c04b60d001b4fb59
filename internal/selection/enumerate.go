package selection

import (
	"slices"
	"time"

	"github.com/snapdock/snapdock/internal/driver"
)

// Enumeration is the outcome of a non-destructive focus-cycle walk.
type Enumeration struct {
	Observations []Observation
	FocusChanges int
	UniqueNames  []string
}

// Enumerate walks the open picker's focus cycle without activating anything,
// capturing every tile it can reach. Diagnostic tool for token tuning: run it
// with the picker open to see the names the walker would be matching against.
func Enumerate(input driver.Input, acc driver.Accessibility, maxSteps int, stepDelay time.Duration) Enumeration {
	var out Enumeration
	last := ""
	primed := false
	stagnate := 0

	for step := 0; step < maxSteps; step++ {
		name := ""
		var obs Observation
		if el, err := acc.FocusedElement(); err == nil {
			name = el.Name
			obs = Observation{
				Step:        step,
				Name:        el.Name,
				Rect:        el.Rect,
				PID:         el.PID,
				ControlKind: el.ControlKind,
			}
		} else {
			obs = Observation{Step: step}
		}

		if primed && name != last {
			out.FocusChanges++
		}
		primed = true
		if name != "" && !slices.Contains(out.UniqueNames, name) {
			out.UniqueNames = append(out.UniqueNames, name)
		}
		out.Observations = append(out.Observations, obs)

		input.NavigateNext() //nolint:errcheck
		time.Sleep(stepDelay)
		if name == last {
			stagnate++
			if stagnate%2 == 1 {
				input.NavigateDown() //nolint:errcheck
				time.Sleep(stepDelay)
			}
		} else {
			stagnate = 0
		}
		last = name
	}
	return out
}
