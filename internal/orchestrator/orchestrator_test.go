package orchestrator_test

import (
	"testing"
	"time"

	"github.com/snapdock/snapdock/internal/config"
	"github.com/snapdock/snapdock/internal/driver"
	"github.com/snapdock/snapdock/internal/geometry"
	"github.com/snapdock/snapdock/internal/orchestrator"
	"github.com/snapdock/snapdock/internal/selection"
	"github.com/snapdock/snapdock/internal/splitstate"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Selection.StepDelayMS = 0
	cfg.Snap.WindowWaitMS = 10
	return cfg
}

// deskScenario models a Word document in the foreground and a browser window
// the picker offers as a tile. The Word window starts floating at well under
// half the work-area width, so it only verifies as snapped after the snap
// chord actually reshapes it.
func deskScenario(snapApplies bool) driver.Scenario {
	return driver.Scenario{
		WorkArea:    []int{0, 0, 1920, 1080},
		SnapApplies: snapApplies,
		Windows: []driver.WindowSpec{
			{Title: "quarterly report.docx - Word", Rect: []int{100, 100, 700, 800}},
			{Title: "SarvajñaGPT - Google Chrome", Rect: []int{300, 50, 1500, 900}},
		},
		Tiles: []driver.TileSpec{
			{Name: "Recycle Bin", Rect: []int{0, 0, 100, 100}},
			{Name: "SarvajñaGPT - Google Chrome", Rect: []int{1000, 300, 1400, 600}},
		},
	}
}

func arrangeRequest() orchestrator.Request {
	return orchestrator.Request{
		Tokens:      []string{"sarvajña", "browser"},
		FocusTokens: []string{"quarterly report.docx"},
		Side:        geometry.SideLeft,
		PathHint:    `C:\docs\quarterly report.docx`,
	}
}

// ----------------------------------------------------------------------------
// Full arrangement
// ----------------------------------------------------------------------------

func TestArrangePlacesAndTracksSplit(t *testing.T) {
	sd := driver.NewScripted(deskScenario(true))
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()
	o := orchestrator.New(sd, tr, testConfig())

	res := o.Arrange(arrangeRequest())

	if !res.Matched {
		t.Fatalf("expected success, got reason %q", res.Reason)
	}
	if res.Method != selection.MethodClick {
		t.Errorf("method = %q, want %q", res.Method, selection.MethodClick)
	}
	if sd.SnappedTo != geometry.SideLeft {
		t.Errorf("snap chord sent toward %q, want left", sd.SnappedTo)
	}

	state := tr.Get()
	if !state.Active {
		t.Fatal("tracker not updated after success")
	}
	if state.Side != geometry.SideLeft {
		t.Errorf("tracked side = %q, want left", state.Side)
	}
	if state.Primary == nil || state.Primary.Title != "quarterly report.docx - Word" {
		t.Errorf("primary = %+v, want the Word window", state.Primary)
	}
	if state.Partner == nil || state.Partner.Title != "SarvajñaGPT - Google Chrome" {
		t.Errorf("partner = %+v, want the browser window", state.Partner)
	}
	if state.AssociatedPath != `C:\docs\quarterly report.docx` {
		t.Errorf("path = %q", state.AssociatedPath)
	}
}

func TestArrangeSkipsWhenSplitAlreadyHolds(t *testing.T) {
	sd := driver.NewScripted(deskScenario(true))
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()
	o := orchestrator.New(sd, tr, testConfig())

	if res := o.Arrange(arrangeRequest()); !res.Matched {
		t.Fatalf("first arrangement failed: %q", res.Reason)
	}
	stepsAfterFirst := sd.StepCount()

	res := o.Arrange(arrangeRequest())
	if !res.Matched || res.Method != selection.MethodNone {
		t.Fatalf("second arrangement = %+v, want a synthetic skip", res)
	}
	if sd.StepCount() != stepsAfterFirst {
		t.Errorf("skip touched the UI: %d extra input steps", sd.StepCount()-stepsAfterFirst)
	}
}

// ----------------------------------------------------------------------------
// Debounce and failure paths
// ----------------------------------------------------------------------------

func TestArrangeDebouncesAfterRecentSuccess(t *testing.T) {
	sd := driver.NewScripted(deskScenario(true))
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()
	o := orchestrator.New(sd, tr, testConfig())

	if res := o.Arrange(arrangeRequest()); !res.Matched {
		t.Fatalf("first arrangement failed: %q", res.Reason)
	}

	// Break the split so the skip check cannot answer, then retry inside
	// the cool-down window.
	primary, _ := sd.FindWindow([]string{"quarterly"})
	sd.MoveWindow(primary.Handle, geometry.Rect{Left: 50, Top: 50, Right: 700, Bottom: 500})

	res := o.Arrange(arrangeRequest())
	if res.Matched || res.Reason != selection.ReasonDebounced {
		t.Errorf("result = %+v, want reason %q", res, selection.ReasonDebounced)
	}
}

func TestArrangeProceedsAfterDebounceElapses(t *testing.T) {
	sd := driver.NewScripted(deskScenario(true))
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()
	cfg := testConfig()
	cfg.Snap.DebounceMS = 50
	o := orchestrator.New(sd, tr, cfg)

	if res := o.Arrange(arrangeRequest()); !res.Matched {
		t.Fatalf("first arrangement failed: %q", res.Reason)
	}

	// Break the split so the skip check cannot answer.
	primary, _ := sd.FindWindow([]string{"quarterly"})
	sd.MoveWindow(primary.Handle, geometry.Rect{Left: 50, Top: 50, Right: 700, Bottom: 500})

	if res := o.Arrange(arrangeRequest()); res.Reason != selection.ReasonDebounced {
		t.Fatalf("second arrangement = %+v, want a debounce inside the cool-down", res)
	}

	time.Sleep(80 * time.Millisecond)
	res := o.Arrange(arrangeRequest())
	if !res.Matched {
		t.Errorf("expected a rerun after the cool-down, got reason %q", res.Reason)
	}
	if !tr.Get().Active {
		t.Error("rerun did not re-track the split")
	}
}

func TestArrangeReportsGeometryMismatch(t *testing.T) {
	// The picker matches but the OS never honors the snap, so no window
	// lands on the requested half.
	sd := driver.NewScripted(deskScenario(false))
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()
	o := orchestrator.New(sd, tr, testConfig())

	res := o.Arrange(arrangeRequest())

	if res.Matched {
		t.Fatal("expected a geometry failure")
	}
	if res.Reason != selection.ReasonGeometryMismatch {
		t.Errorf("reason = %q, want %q", res.Reason, selection.ReasonGeometryMismatch)
	}
	if tr.Get().Active {
		t.Error("tracker must stay untouched on failure")
	}
}

func TestArrangeFailurePreservesPriorState(t *testing.T) {
	sd := driver.NewScripted(deskScenario(true))
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()
	o := orchestrator.New(sd, tr, testConfig())

	if res := o.Arrange(arrangeRequest()); !res.Matched {
		t.Fatalf("first arrangement failed: %q", res.Reason)
	}

	// A request for a tile that is not in the picker fails without
	// disturbing the tracked split.
	missing := orchestrator.Request{
		Tokens: []string{"budget.xlsx"},
		Side:   geometry.SideLeft,
	}
	res := o.Arrange(missing)
	if res.Matched {
		t.Fatal("expected failure for a missing tile")
	}
	if !tr.Get().Active {
		t.Error("prior split state lost on a failed arrangement")
	}
}
