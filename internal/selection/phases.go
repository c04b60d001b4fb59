package selection

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/snapdock/snapdock/internal/driver"
	"github.com/snapdock/snapdock/internal/token"
)

// Controller runs the ordered matching phases over one open picker:
// Specific (when specific tokens exist), All, Relaxed (generic only, shorter
// budget, only after at least one focus change), then the tree fallback. One
// wall-clock deadline spans the whole call.
type Controller struct {
	Input         driver.Input
	Accessibility driver.Accessibility
	Params        Params
}

// NewController builds a controller over a driver with the given tunables.
func NewController(d driver.Driver, p Params) *Controller {
	return &Controller{Input: d, Accessibility: d, Params: p}
}

// Run walks the picker for the classified token sets and returns the outcome.
// specific may be empty; all must hold the full active set; relaxed holds the
// generic tokens only.
func (c *Controller) Run(specific, all, relaxed token.MatchSet) Result {
	res := Result{ID: uuid.NewString()}

	if reason, ok := c.preflight(); !ok {
		res.Reason = reason
		logger.Warn("selection aborted before walking", "reason", reason)
		return res
	}

	w := &walker{
		input:    c.Input,
		acc:      c.Accessibility,
		params:   c.Params,
		deadline: time.Now().Add(c.Params.Deadline),
	}

	steps := c.Params.Steps
	if !specific.Empty() {
		steps = c.Params.StepsWithSpecific
	}

	outcome := outcomeExhausted
	if !specific.Empty() {
		outcome = w.runPhase(PhaseSpecific, specific, steps)
		res.Phase = PhaseSpecific
	}
	if outcome == outcomeExhausted {
		outcome = w.runPhase(PhaseAll, all, steps)
		res.Phase = PhaseAll
	}

	if outcome == outcomeExhausted && w.trace.FocusChanges > 0 && !relaxed.Empty() {
		outcome = w.runPhase(PhaseRelaxed, relaxed, c.Params.RelaxedSteps)
		if outcome != outcomeExhausted {
			res.Phase = PhaseRelaxed
		}
	}

	switch outcome {
	case outcomeMatched:
		res.Matched = true
		res.Method = w.method
		res.FinalName = w.finalName
	case outcomeTimeout:
		res.Reason = ReasonTimeout
	case outcomeRepetition:
		// A small stable cycle with no token anywhere in it: the picker is
		// up but the target tile is not in it.
		res.Reason = ReasonTokensNotFound
	case outcomeAbsent, outcomeExhausted:
		if c.treeFallback(all, w, &res) {
			res.Matched = true
			res.Method = w.method
			res.Phase = PhaseTree
			res.FinalName = w.finalName
		} else if w.trace.FocusChanges == 0 {
			res.Reason = ReasonPickerAbsent
		} else {
			res.Reason = ReasonTokensNotFound
		}
	}

	res.FocusChanges = w.trace.FocusChanges
	res.UniqueNames = w.trace.UniqueNames
	res.Summary = w.trace.Summary()
	if res.Matched {
		logger.Info("tile selected", "id", res.ID, "phase", res.Phase, "method", res.Method, "name", res.FinalName)
	} else {
		logger.Warn("selection failed", "id", res.ID, "reason", res.Reason, "focus_changes", res.FocusChanges)
	}
	return res
}

// preflight checks that the accessibility subsystem is reachable at all. A
// missing focused element alone is not fatal; both reads failing means there
// is nothing to walk.
func (c *Controller) preflight() (Reason, bool) {
	if _, err := c.Accessibility.FocusedElement(); err == nil {
		return ReasonNone, true
	} else if !errors.Is(err, driver.ErrNoElement) {
		return ReasonAccessibilityUnavailable, false
	}
	root, err := c.Accessibility.Root()
	if err != nil {
		return ReasonAccessibilityUnavailable, false
	}
	closeNode(root)
	return ReasonNone, true
}
