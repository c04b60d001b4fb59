// Package config holds the user-tunable settings: walk budgets, timing,
// geometry tolerance, and the generic label vocabulary. Settings live in a
// TOML file under the XDG config home and every value has a working default,
// so a missing or partial file is never an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration document.
type Config struct {
	Selection SelectionConfig `toml:"selection"`
	Snap      SnapConfig      `toml:"snap"`
	Tracker   TrackerConfig   `toml:"tracker"`
	// GenericGroups maps a group name to the application-class labels it
	// covers. A request hint matching any label activates the whole group.
	GenericGroups map[string][]string `toml:"generic_groups"`
}

// SelectionConfig tunes the focus-cycle walk and the tree fallback.
type SelectionConfig struct {
	StepsWithSpecific int `toml:"steps_with_specific"`
	Steps             int `toml:"steps"`
	RelaxedSteps      int `toml:"relaxed_steps"`
	MinSteps          int `toml:"min_steps"`
	StagnationWindow  int `toml:"stagnation_window"`
	SmallSetMax       int `toml:"small_set_max"`
	StepDelayMS       int `toml:"step_delay_ms"`
	DeadlineMS        int `toml:"deadline_ms"`
	TreeNodeBudget    int `toml:"tree_node_budget"`
	TreeFanout        int `toml:"tree_fanout"`
	TreeSampleCap     int `toml:"tree_sample_cap"`
}

// SnapConfig tunes the snap trigger and geometry verification.
type SnapConfig struct {
	// ToleranceRatio is the allowed deviation from a perfect half width.
	ToleranceRatio float64 `toml:"tolerance_ratio"`
	DebounceMS     int     `toml:"debounce_ms"`
	// WindowWaitMS bounds how long to wait for the target window to appear
	// before snapping.
	WindowWaitMS int `toml:"window_wait_ms"`
}

// TrackerConfig tunes the split-state verifier.
type TrackerConfig struct {
	VerifyIntervalMS int `toml:"verify_interval_ms"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() *Config {
	return &Config{
		Selection: SelectionConfig{
			StepsWithSpecific: 14,
			Steps:             18,
			RelaxedSteps:      10,
			MinSteps:          6,
			StagnationWindow:  4,
			SmallSetMax:       3,
			StepDelayMS:       60,
			DeadlineMS:        2000,
			TreeNodeBudget:    800,
			TreeFanout:        50,
			TreeSampleCap:     40,
		},
		Snap: SnapConfig{
			ToleranceRatio: 0.12,
			DebounceMS:     6000,
			WindowWaitMS:   4000,
		},
		Tracker: TrackerConfig{
			VerifyIntervalMS: 5000,
		},
		GenericGroups: map[string][]string{
			"word":    {"word"},
			"vscode":  {"visual studio code", "vs code", "code"},
			"browser": {"chrome", "edge", "browser"},
		},
	}
}

// GetConfigPath returns the config file location under the XDG config home.
func GetConfigPath() (string, error) {
	return xdg.ConfigFile("snapdock/snapdock.toml")
}

// LoadUserConfig loads the user's config file, creating it with defaults when
// it does not exist. Keys missing from the file keep their default values.
func LoadUserConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if werr := SaveConfig(cfg, path); werr != nil {
			return cfg, fmt.Errorf("write default config: %w", werr)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals a TOML document on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config as TOML, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Overrides carries CLI flag values that take precedence over the file.
// Zero-valued fields leave the config untouched.
type Overrides struct {
	DeadlineMS     int
	DebounceMS     int
	StepDelayMS    int
	ToleranceRatio float64
}

// ApplyOverrides folds non-zero flag values into the config.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DeadlineMS > 0 {
		c.Selection.DeadlineMS = o.DeadlineMS
	}
	if o.DebounceMS > 0 {
		c.Snap.DebounceMS = o.DebounceMS
	}
	if o.StepDelayMS > 0 {
		c.Selection.StepDelayMS = o.StepDelayMS
	}
	if o.ToleranceRatio > 0 {
		c.Snap.ToleranceRatio = o.ToleranceRatio
	}
}
