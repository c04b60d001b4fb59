// Package orchestrator sequences one split arrangement end to end: skip and
// debounce checks, pre-snap focus of the window to place, the OS edge-snap
// chord, the picker walk, geometry verification, and the tracker update. One
// arrangement runs at a time; simulated input cannot be interleaved.
package orchestrator

import (
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/snapdock/snapdock/internal/config"
	"github.com/snapdock/snapdock/internal/driver"
	"github.com/snapdock/snapdock/internal/geometry"
	"github.com/snapdock/snapdock/internal/selection"
	"github.com/snapdock/snapdock/internal/splitstate"
	"github.com/snapdock/snapdock/internal/token"
)

var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "orchestrator",
	})
}

// SetLogLevel sets the logging level for the orchestrator package.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// settleDelay lets the picker populate after the snap chord before walking.
const settleDelay = 80 * time.Millisecond

// verifySettle lets the OS finish placing windows before geometry is read.
const verifySettle = 200 * time.Millisecond

// Request describes one desired split arrangement.
type Request struct {
	// Tokens identify the tile to pick; its window ends up opposite Side.
	Tokens []string
	// FocusTokens identify the window to focus and snap onto Side. Empty
	// means snap whatever is foreground.
	FocusTokens []string
	Side        geometry.Side
	// PathHint associates the arrangement with a document path, so repeat
	// requests for the same document can be skipped.
	PathHint string
}

// Label is the request's identity for skip and debounce checks.
func (r Request) Label() string {
	return strings.Join(r.Tokens, " ")
}

func (r Request) signature() string {
	return token.Normalize(r.Label()) + "|" + r.Side.String() + "|" + r.PathHint
}

// Orchestrator runs arrangements over one driver and one tracker.
type Orchestrator struct {
	mu      sync.Mutex
	drv     driver.Driver
	tracker *splitstate.Tracker
	cfg     *config.Config

	// lastSuccess stamps successful arrangements per request signature for
	// the debounce window.
	lastSuccess map[string]time.Time
}

// New builds an orchestrator. cfg nil selects the defaults.
func New(drv driver.Driver, tracker *splitstate.Tracker, cfg *config.Config) *Orchestrator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Orchestrator{
		drv:         drv,
		tracker:     tracker,
		cfg:         cfg,
		lastSuccess: make(map[string]time.Time),
	}
}

// SetConfig swaps the tuning values, typically from a config file reload. It
// does not affect an arrangement already in flight.
func (o *Orchestrator) SetConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	o.mu.Lock()
	o.cfg = cfg
	o.mu.Unlock()
}

// Arrange runs one arrangement. It always returns a Result; failures carry a
// Reason and the walk trace instead of an error.
func (o *Orchestrator) Arrange(req Request) selection.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	cfg := o.cfg
	label := req.Label()

	if o.tracker.ShouldSkip(label, req.PathHint) {
		logger.Info("split already in place", "label", label, "side", req.Side)
		return selection.Result{
			ID:        uuid.NewString(),
			Matched:   true,
			Method:    selection.MethodNone,
			FinalName: o.tracker.Get().TargetLabel,
		}
	}

	sig := req.signature()
	debounce := time.Duration(cfg.Snap.DebounceMS) * time.Millisecond
	if at, ok := o.lastSuccess[sig]; ok && time.Since(at) < debounce {
		logger.Info("arrangement debounced", "label", label, "since", time.Since(at))
		return selection.Result{ID: uuid.NewString(), Reason: selection.ReasonDebounced}
	}

	primary := o.focusSnapTarget(req, cfg)

	if err := o.drv.SnapActive(req.Side); err != nil {
		logger.Warn("snap chord failed", "side", req.Side, "err", err)
	}
	time.Sleep(settleDelay)

	specific, all, relaxed := buildSets(req.Tokens, cfg)
	ctrl := selection.NewController(o.drv, paramsFromConfig(cfg))
	res := ctrl.Run(specific, all, relaxed)
	if !res.Matched {
		return res
	}

	time.Sleep(verifySettle)
	partner := o.verifySplit(primary, req, cfg, &res)
	if res.Reason == selection.ReasonGeometryMismatch {
		return res
	}

	o.tracker.Set(primary, partner, req.Side, label, req.PathHint)
	now := time.Now()
	o.lastSuccess[sig] = now
	// An expired stamp can never debounce again; drop it.
	for k, at := range o.lastSuccess {
		if now.Sub(at) >= debounce {
			delete(o.lastSuccess, k)
		}
	}
	logger.Info("arrangement complete", "id", res.ID, "label", label, "side", req.Side, "method", res.Method)
	return res
}

// focusSnapTarget brings the window that should occupy req.Side to the
// foreground and returns its snapshot. All failures degrade to snapping
// whatever is currently foreground.
func (o *Orchestrator) focusSnapTarget(req Request, cfg *config.Config) *driver.WindowRef {
	wait := time.Duration(cfg.Snap.WindowWaitMS) * time.Millisecond
	if len(req.FocusTokens) > 0 {
		if ref, ok := driver.WaitForWindow(o.drv, req.FocusTokens, wait, 0); ok {
			if err := o.drv.FocusWindow(ref.Handle); err != nil {
				logger.Warn("could not focus snap target", "title", ref.Title, "err", err)
			}
		} else {
			logger.Warn("snap target window never appeared", "tokens", req.FocusTokens)
		}
	}
	fg, err := o.drv.ForegroundWindow()
	if err != nil {
		logger.Warn("no foreground window to snap", "err", err)
		return nil
	}
	return &fg
}

// verifySplit checks the resulting geometry. The snapped window must hold
// req.Side; a matched tile whose window cannot be confirmed on the opposite
// half is tolerated, it just is not tracked as partner.
func (o *Orchestrator) verifySplit(primary *driver.WindowRef, req Request, cfg *config.Config, res *selection.Result) *driver.WindowRef {
	work, err := o.drv.WorkArea()
	if err != nil {
		logger.Warn("work area unavailable, skipping verification", "err", err)
		return nil
	}
	tol := cfg.Snap.ToleranceRatio

	if primary != nil {
		rect, err := o.drv.WindowRect(primary.Handle)
		if err != nil || !geometry.IsSnapped(rect, work, req.Side, tol) {
			logger.Warn("snapped window did not land on its half", "title", primary.Title, "side", req.Side)
			res.Matched = false
			res.Reason = selection.ReasonGeometryMismatch
			return nil
		}
	}

	partner, ok := o.drv.FindWindow(req.Tokens)
	if !ok {
		return nil
	}
	rect, err := o.drv.WindowRect(partner.Handle)
	if err != nil || !geometry.IsSnapped(rect, work, req.Side.Opposite(), tol) {
		logger.Debug("partner window not confirmed on opposite half", "title", partner.Title)
		return nil
	}
	return &partner
}

func paramsFromConfig(cfg *config.Config) selection.Params {
	return selection.Params{
		StepsWithSpecific: cfg.Selection.StepsWithSpecific,
		Steps:             cfg.Selection.Steps,
		RelaxedSteps:      cfg.Selection.RelaxedSteps,
		MinSteps:          cfg.Selection.MinSteps,
		StagnationWindow:  cfg.Selection.StagnationWindow,
		SmallSetMax:       cfg.Selection.SmallSetMax,
		StepDelay:         time.Duration(cfg.Selection.StepDelayMS) * time.Millisecond,
		Deadline:          time.Duration(cfg.Selection.DeadlineMS) * time.Millisecond,
		TreeNodeBudget:    cfg.Selection.TreeNodeBudget,
		TreeFanout:        cfg.Selection.TreeFanout,
		TreeSampleCap:     cfg.Selection.TreeSampleCap,
	}
}

// buildSets classifies the request tokens against the configured generic
// groups and assembles the phase match sets.
func buildSets(hints []string, cfg *config.Config) (specific, all, relaxed token.MatchSet) {
	groups := Groups(cfg)
	sp, gen := token.Classify(hints, groups)
	return token.NewMatchSet(sp), token.NewMatchSet(sp, gen), token.NewMatchSet(gen)
}

// Groups converts the configured generic label map into classifier groups,
// ordered by name so classification is deterministic.
func Groups(cfg *config.Config) []token.Group {
	names := make([]string, 0, len(cfg.GenericGroups))
	for name := range cfg.GenericGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	groups := make([]token.Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, token.Group{Name: name, Labels: cfg.GenericGroups[name]})
	}
	return groups
}
