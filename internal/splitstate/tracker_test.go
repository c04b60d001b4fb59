package splitstate_test

import (
	"testing"
	"time"

	"github.com/snapdock/snapdock/internal/driver"
	"github.com/snapdock/snapdock/internal/geometry"
	"github.com/snapdock/snapdock/internal/splitstate"
)

// splitDesktop builds a scripted desktop with a Word document on the left
// half and a second document on the right half of a 1920x1080 work area.
func splitDesktop() (*driver.Scripted, *driver.WindowRef, *driver.WindowRef) {
	sd := driver.NewScripted(driver.Scenario{
		WorkArea: []int{0, 0, 1920, 1080},
		Windows: []driver.WindowSpec{
			{Title: "quarterly report.docx - Word", Rect: []int{0, 0, 960, 1080}},
			{Title: "Proposal - Word", Rect: []int{960, 0, 1920, 1080}},
		},
	})
	primary, _ := sd.FindWindow([]string{"quarterly"})
	partner, _ := sd.FindWindow([]string{"proposal"})
	return sd, &primary, &partner
}

// ----------------------------------------------------------------------------
// Skip checks
// ----------------------------------------------------------------------------

func TestShouldSkipWhenSplitHolds(t *testing.T) {
	sd, primary, partner := splitDesktop()
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()

	tr.Set(primary, partner, geometry.SideLeft, "quarterly report.docx", "")

	if !tr.ShouldSkip("quarterly report.docx", "") {
		t.Error("expected skip while the split holds")
	}
	// Label comparison is normalized.
	if !tr.ShouldSkip("Quarterly Report.DOCX", "") {
		t.Error("expected skip for a case-variant label")
	}
}

func TestShouldSkipLabelMismatchKeepsState(t *testing.T) {
	sd, primary, partner := splitDesktop()
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()

	tr.Set(primary, partner, geometry.SideLeft, "quarterly report.docx", "")

	if tr.ShouldSkip("budget.xlsx", "") {
		t.Error("unexpected skip for a different label")
	}
	if !tr.Get().Active {
		t.Error("a label mismatch must not clear the state")
	}
}

func TestShouldSkipPathDiscriminates(t *testing.T) {
	sd, primary, partner := splitDesktop()
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()

	tr.Set(primary, partner, geometry.SideLeft, "quarterly report.docx", `C:\docs\quarterly report.docx`)

	if !tr.ShouldSkip("quarterly report.docx", `C:\docs\quarterly report.docx`) {
		t.Error("expected skip for the matching path")
	}
	if tr.ShouldSkip("quarterly report.docx", `C:\other\quarterly report.docx`) {
		t.Error("unexpected skip for a different path")
	}
	if !tr.ShouldSkip("quarterly report.docx", "") {
		t.Error("expected skip when no path was requested")
	}
}

// ----------------------------------------------------------------------------
// Re-validation
// ----------------------------------------------------------------------------

func TestShouldSkipClearsWhenWindowMoved(t *testing.T) {
	sd, primary, partner := splitDesktop()
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()

	tr.Set(primary, partner, geometry.SideLeft, "quarterly report.docx", "")
	sd.MoveWindow(primary.Handle, geometry.Rect{Left: 200, Top: 200, Right: 900, Bottom: 700})

	if tr.ShouldSkip("quarterly report.docx", "") {
		t.Error("unexpected skip after the primary window moved")
	}
	if tr.Get().Active {
		t.Error("stale state must be cleared by the skip check")
	}
}

func TestShouldSkipClearsWhenPartnerDies(t *testing.T) {
	sd, primary, partner := splitDesktop()
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()

	tr.Set(primary, partner, geometry.SideLeft, "quarterly report.docx", "")
	sd.CloseWindow(partner.Handle)

	if tr.ShouldSkip("quarterly report.docx", "") {
		t.Error("unexpected skip after the partner window closed")
	}
	if tr.Get().Active {
		t.Error("stale state must be cleared by the skip check")
	}
}

func TestVerifierClearsBrokenSplit(t *testing.T) {
	sd, primary, partner := splitDesktop()
	tr := splitstate.NewTracker(sd, 10*time.Millisecond, 0)
	defer tr.Stop()

	tr.Set(primary, partner, geometry.SideLeft, "quarterly report.docx", "")
	sd.CloseWindow(primary.Handle)

	deadline := time.Now().Add(2 * time.Second)
	for tr.Get().Active {
		if time.Now().After(deadline) {
			t.Fatal("verifier did not clear the broken split")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ----------------------------------------------------------------------------
// Snapshot semantics
// ----------------------------------------------------------------------------

func TestGetReturnsClone(t *testing.T) {
	sd, primary, partner := splitDesktop()
	tr := splitstate.NewTracker(sd, time.Hour, 0)
	defer tr.Stop()

	tr.Set(primary, partner, geometry.SideLeft, "quarterly report.docx", "")

	snap := tr.Get()
	snap.Primary.Title = "mutated"

	if tr.Get().Primary.Title != "quarterly report.docx - Word" {
		t.Error("mutating a snapshot leaked into the tracker")
	}
}

func TestSetAfterStopKeepsLazyValidationOnly(t *testing.T) {
	sd, primary, partner := splitDesktop()
	tr := splitstate.NewTracker(sd, 10*time.Millisecond, 0)

	tr.Stop()
	tr.Set(primary, partner, geometry.SideLeft, "quarterly report.docx", "")
	sd.CloseWindow(primary.Handle)

	// No background verifier runs after Stop, so the broken split stays
	// recorded until something re-validates it.
	time.Sleep(50 * time.Millisecond)
	if !tr.Get().Active {
		t.Fatal("no verifier should run after Stop")
	}
	if tr.ShouldSkip("quarterly report.docx", "") {
		t.Error("unexpected skip for a dead primary")
	}
	if tr.Get().Active {
		t.Error("lazy re-validation must still clear stale state")
	}
}

func TestClearAndStopAreIdempotent(t *testing.T) {
	sd, primary, partner := splitDesktop()
	tr := splitstate.NewTracker(sd, time.Hour, 0)

	tr.Set(primary, partner, geometry.SideLeft, "quarterly report.docx", "")
	tr.Clear()
	tr.Clear()
	if tr.Get().Active {
		t.Error("state still active after Clear")
	}
	tr.Stop()
	tr.Stop()
}
