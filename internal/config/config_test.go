package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snapdock/snapdock/internal/config"
)

// =============================================================================
// Default Configuration Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Selection.Steps <= 0 {
		t.Error("Expected a positive step budget")
	}
	if cfg.Selection.StepsWithSpecific > cfg.Selection.Steps {
		t.Error("Expected the specific-token budget to be the smaller one")
	}
	if cfg.Selection.MinSteps <= 0 || cfg.Selection.MinSteps >= cfg.Selection.StepsWithSpecific {
		t.Errorf("MinSteps = %d, want between 1 and the phase budget", cfg.Selection.MinSteps)
	}
	if cfg.Selection.DeadlineMS < 500 {
		t.Errorf("DeadlineMS = %d, want at least 500", cfg.Selection.DeadlineMS)
	}
	if cfg.Snap.ToleranceRatio <= 0 || cfg.Snap.ToleranceRatio >= 0.5 {
		t.Errorf("ToleranceRatio = %v, want in (0, 0.5)", cfg.Snap.ToleranceRatio)
	}
	if cfg.Snap.DebounceMS <= 0 {
		t.Error("Expected a positive debounce")
	}
	if cfg.Tracker.VerifyIntervalMS <= 0 {
		t.Error("Expected a positive verify interval")
	}
}

func TestDefaultGenericGroups(t *testing.T) {
	cfg := config.DefaultConfig()

	for _, group := range []string{"word", "vscode", "browser"} {
		labels, ok := cfg.GenericGroups[group]
		if !ok {
			t.Errorf("Expected %s group to exist", group)
			continue
		}
		if len(labels) == 0 {
			t.Errorf("Expected %s group to have labels", group)
		}
	}
}

// =============================================================================
// Parsing Tests
// =============================================================================

func TestParseOverlaysDefaults(t *testing.T) {
	doc := []byte(`
[selection]
deadline_ms = 3500

[snap]
tolerance_ratio = 0.2

[generic_groups]
mail = ["outlook", "thunderbird"]
`)
	cfg, err := config.Parse(doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Selection.DeadlineMS != 3500 {
		t.Errorf("DeadlineMS = %d, want 3500", cfg.Selection.DeadlineMS)
	}
	if cfg.Snap.ToleranceRatio != 0.2 {
		t.Errorf("ToleranceRatio = %v, want 0.2", cfg.Snap.ToleranceRatio)
	}
	// Untouched keys keep their defaults.
	if cfg.Selection.Steps != config.DefaultConfig().Selection.Steps {
		t.Errorf("Steps = %d, want the default", cfg.Selection.Steps)
	}
	if len(cfg.GenericGroups["mail"]) != 2 {
		t.Errorf("mail group = %v, want 2 labels", cfg.GenericGroups["mail"])
	}
}

func TestParseRejectsMalformedTOML(t *testing.T) {
	if _, err := config.Parse([]byte("[selection\nsteps = ")); err == nil {
		t.Error("Expected an error for malformed TOML")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ApplyOverrides(config.Overrides{DeadlineMS: 9000, ToleranceRatio: 0.3})

	if cfg.Selection.DeadlineMS != 9000 {
		t.Errorf("DeadlineMS = %d, want 9000", cfg.Selection.DeadlineMS)
	}
	if cfg.Snap.ToleranceRatio != 0.3 {
		t.Errorf("ToleranceRatio = %v, want 0.3", cfg.Snap.ToleranceRatio)
	}
	// Zero-valued overrides leave settings alone.
	if cfg.Snap.DebounceMS != config.DefaultConfig().Snap.DebounceMS {
		t.Errorf("DebounceMS = %d, want the default", cfg.Snap.DebounceMS)
	}
}

// =============================================================================
// Round-trip and Watch Tests
// =============================================================================

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapdock.toml")
	want := config.DefaultConfig()
	want.Selection.Steps = 21

	if err := config.SaveConfig(want, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	got, err := config.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Selection.Steps != 21 {
		t.Errorf("Steps = %d, want 21", got.Selection.Steps)
	}
}

func TestWatchDeliversReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapdock.toml")
	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	reloaded := make(chan *config.Config, 1)
	stop, err := config.Watch(path, func(cfg *config.Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer stop()

	updated := config.DefaultConfig()
	updated.Selection.DeadlineMS = 1234
	if err := config.SaveConfig(updated, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Selection.DeadlineMS != 1234 {
			t.Errorf("DeadlineMS = %d, want 1234", cfg.Selection.DeadlineMS)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload delivered")
	}
}
