// Package splitstate tracks the one split layout this process believes it has
// arranged: which window sits on which half, for which target, and whether
// that belief still holds. The state is in-memory only and re-validated both
// lazily on use and periodically in the background, because the user can close
// or move either window at any time.
package splitstate

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/snapdock/snapdock/internal/driver"
	"github.com/snapdock/snapdock/internal/geometry"
	"github.com/snapdock/snapdock/internal/token"
)

var logger *log.Logger

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "splitstate",
	})
}

// SetLogLevel sets the logging level for the splitstate package.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// DefaultVerifyInterval is how often the background verifier re-checks an
// active split.
const DefaultVerifyInterval = 5 * time.Second

// State is a snapshot of the tracked split. Primary is the window on Side;
// Partner, when known, holds the opposite half.
type State struct {
	Active         bool
	Primary        *driver.WindowRef
	Partner        *driver.WindowRef
	Side           geometry.Side
	TargetLabel    string
	AssociatedPath string
	LastSetAt      time.Time
	LastCheckedAt  time.Time
}

// Tracker owns the split state. All access goes through its mutex; one
// tracker per process.
type Tracker struct {
	mu        sync.Mutex
	desktop   driver.Desktop
	interval  time.Duration
	tolerance float64

	state   State
	stop    chan struct{}
	started bool
	stopped bool
}

// NewTracker builds a tracker over the desktop capability. interval <= 0
// selects the default; tolerance <= 0 selects the default snap tolerance.
func NewTracker(d driver.Desktop, interval time.Duration, tolerance float64) *Tracker {
	if interval <= 0 {
		interval = DefaultVerifyInterval
	}
	if tolerance <= 0 {
		tolerance = geometry.DefaultSnapTolerance
	}
	return &Tracker{
		desktop:   d,
		interval:  interval,
		tolerance: tolerance,
		stop:      make(chan struct{}),
	}
}

// Set overwrites the tracked split and starts the background verifier on
// first activation. Calling Set again is always safe; the verifier is started
// at most once. After Stop the state is still recorded and the lazy skip-check
// re-validation still applies, but no background verifier runs.
func (t *Tracker) Set(primary, partner *driver.WindowRef, side geometry.Side, label, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.state = State{
		Active:         true,
		Primary:        cloneRef(primary),
		Partner:        cloneRef(partner),
		Side:           side,
		TargetLabel:    label,
		AssociatedPath: path,
		LastSetAt:      now,
		LastCheckedAt:  now,
	}
	logger.Info("split recorded", "side", side, "label", label)
	if !t.started && !t.stopped {
		t.started = true
		go t.verifyLoop()
	}
}

// Get returns a cloned snapshot; mutating it does not affect the tracker.
func (t *Tracker) Get() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state
	s.Primary = cloneRef(s.Primary)
	s.Partner = cloneRef(s.Partner)
	return s
}

// Clear drops the tracked split.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked("cleared")
}

// Stop shuts down the background verifier for good. Safe to call more than
// once; a later Set will not restart it.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
}

// ShouldSkip reports whether an arrangement for the given label (and path,
// when non-empty) is already in place. A hit re-validates liveness and
// geometry first; stale state is cleared and does not count as a hit. A label
// or path mismatch leaves the state untouched.
func (t *Tracker) ShouldSkip(label, path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Active {
		return false
	}
	if token.Normalize(label) != token.Normalize(t.state.TargetLabel) {
		return false
	}
	if path != "" && path != t.state.AssociatedPath {
		return false
	}
	if !t.validateLocked() {
		t.clearLocked("stale on skip check")
		return false
	}
	t.state.LastCheckedAt = time.Now()
	return true
}

// verifyLoop periodically re-validates an active split. It only reads and
// clears; it never simulates input.
func (t *Tracker) verifyLoop() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.state.Active {
				if t.validateLocked() {
					t.state.LastCheckedAt = time.Now()
				} else {
					t.clearLocked("verifier found split broken")
				}
			}
			t.mu.Unlock()
		}
	}
}

func (t *Tracker) clearLocked(why string) {
	if t.state.Active {
		logger.Info("split dropped", "why", why, "label", t.state.TargetLabel)
	}
	t.state = State{}
}

// validateLocked checks that the primary window is still alive and snapped to
// its side, and the partner (when tracked) holds the opposite half.
func (t *Tracker) validateLocked() bool {
	work, err := t.desktop.WorkArea()
	if err != nil {
		return false
	}
	if !t.windowHolds(t.state.Primary, work, t.state.Side) {
		return false
	}
	if t.state.Partner != nil && !t.windowHolds(t.state.Partner, work, t.state.Side.Opposite()) {
		return false
	}
	return true
}

func (t *Tracker) windowHolds(ref *driver.WindowRef, work geometry.Rect, side geometry.Side) bool {
	if ref == nil {
		return false
	}
	if !t.desktop.IsWindowAlive(ref.Handle) {
		return false
	}
	if ref.PID != 0 {
		if ok, err := process.PidExists(int32(ref.PID)); err == nil && !ok {
			return false
		}
	}
	rect, err := t.desktop.WindowRect(ref.Handle)
	if err != nil {
		return false
	}
	return geometry.IsSnapped(rect, work, side, t.tolerance)
}

func cloneRef(ref *driver.WindowRef) *driver.WindowRef {
	if ref == nil {
		return nil
	}
	c := *ref
	return &c
}
