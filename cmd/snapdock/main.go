// Package main implements snapdock, a snap-assist automation tool.
// snapdock triggers the OS edge-snap for a window, drives the snap-assist
// tile picker to place a second window on the opposite half, and keeps track
// of the resulting split so repeat requests become no-ops.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/snapdock/snapdock/internal/config"
	"github.com/snapdock/snapdock/internal/driver"
	"github.com/snapdock/snapdock/internal/geometry"
	"github.com/snapdock/snapdock/internal/orchestrator"
	"github.com/snapdock/snapdock/internal/selection"
	"github.com/snapdock/snapdock/internal/splitstate"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// Global flags
var (
	debugMode bool
	overrides config.Overrides
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "snapdock",
		Short: "Snap-assist tile selection and split-layout automation",
		Long: `snapdock - snap-assist automation

Snaps a window to a screen edge, then drives the snap-assist tile picker to
place a matching window on the opposite half. Tracks the resulting split so
repeat requests are skipped while the layout still holds.`,
		Example: `  # Put the browser next to an already-snapped report
  snapdock arrange --side left --focus "quarterly report.docx" sarvajna browser

  # List the tiles the picker currently offers
  snapdock enumerate

  # Replay a recorded picker session for token tuning
  snapdock replay picker.toml quarterly report

  # Edit configuration
  snapdock config edit`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVar(&overrides.DeadlineMS, "deadline-ms", 0, "Override the selection deadline")
	rootCmd.PersistentFlags().IntVar(&overrides.DebounceMS, "debounce-ms", 0, "Override the success debounce window")
	rootCmd.PersistentFlags().IntVar(&overrides.StepDelayMS, "step-delay-ms", 0, "Override the per-step input delay")
	rootCmd.PersistentFlags().Float64Var(&overrides.ToleranceRatio, "tolerance", 0, "Override the snap geometry tolerance")

	var arrangeSide, arrangePath string
	var arrangeFocus []string
	arrangeCmd := &cobra.Command{
		Use:   "arrange [tokens...]",
		Short: "Snap and fill a split layout",
		Long: `Snap the focus window to a side and select the picker tile matching the
given tokens, placing its window on the opposite half.`,
		Example: `  # Word document left, browser right
  snapdock arrange --side left --focus "quarterly report.docx" sarvajna browser

  # Associate the arrangement with a document path for skip checks
  snapdock arrange --side left --path "C:\docs\report.docx" --focus report.docx chrome`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArrange(args, arrangeSide, arrangePath, arrangeFocus)
		},
	}
	arrangeCmd.Flags().StringVar(&arrangeSide, "side", "left", "Side for the focus window (left or right)")
	arrangeCmd.Flags().StringVar(&arrangePath, "path", "", "Document path to associate with the arrangement")
	arrangeCmd.Flags().StringArrayVar(&arrangeFocus, "focus", nil, "Tokens naming the window to snap (defaults to the foreground window)")

	var enumSteps int
	enumerateCmd := &cobra.Command{
		Use:   "enumerate",
		Short: "List the open picker's focus cycle",
		Long: `Walk the snap-assist picker's focus cycle without activating anything and
print every tile reached. The picker must already be open.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnumerate(enumSteps)
		},
	}
	enumerateCmd.Flags().IntVar(&enumSteps, "steps", 40, "Maximum focus steps to walk")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the desktop's snap geometry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	var replaySide string
	replayCmd := &cobra.Command{
		Use:   "replay <scenario.toml> [tokens...]",
		Short: "Run the pipeline against a recorded scenario",
		Long: `Run the full arrangement pipeline against a recorded picker scenario
instead of the live desktop. Useful for tuning tokens offline.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0], args[1:], replaySide)
		},
	}
	replayCmd.Flags().StringVar(&replaySide, "side", "left", "Side for the focus window (left or right)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage snapdock configuration",
		Long:  `Manage the snapdock configuration file and settings`,
	}
	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfigPath()
		},
	}
	configEditCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit configuration in $EDITOR",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfigFile()
		},
	}
	configResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return resetConfigToDefaults()
		},
	}
	configCmd.AddCommand(configPathCmd, configEditCmd, configResetCmd)

	rootCmd.AddCommand(arrangeCmd, enumerateCmd, statusCmd, replayCmd, configCmd)

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(fmt.Sprintf("%s\nCommit: %s\nBuilt: %s\nBy: %s", version, commit, date, builtBy)),
	); err != nil {
		os.Exit(1)
	}
}

func setup() *config.Config {
	if debugMode {
		selection.SetLogLevel(log.DebugLevel)
		splitstate.SetLogLevel(log.DebugLevel)
		orchestrator.SetLogLevel(log.DebugLevel)
		config.SetLogLevel(log.DebugLevel)
	}
	cfg, err := config.LoadUserConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
		cfg = config.DefaultConfig()
	}
	cfg.ApplyOverrides(overrides)
	return cfg
}

func parseSide(s string) (geometry.Side, error) {
	side := geometry.ParseSide(strings.ToLower(s))
	if side == geometry.SideNone {
		return geometry.SideNone, fmt.Errorf("side must be left or right, got %q", s)
	}
	return side, nil
}

func runArrange(tokens []string, sideFlag, path string, focus []string) error {
	side, err := parseSide(sideFlag)
	if err != nil {
		return err
	}
	cfg := setup()
	drv, err := driver.New()
	if err != nil {
		return fmt.Errorf("automation driver: %w", err)
	}

	tracker := splitstate.NewTracker(drv,
		time.Duration(cfg.Tracker.VerifyIntervalMS)*time.Millisecond,
		cfg.Snap.ToleranceRatio)
	defer tracker.Stop()
	orch := orchestrator.New(drv, tracker, cfg)

	// Live-reload tuning values while running.
	if cfgPath, perr := config.GetConfigPath(); perr == nil {
		if stop, werr := config.Watch(cfgPath, orch.SetConfig); werr == nil {
			defer stop()
		}
	}

	res := orch.Arrange(orchestrator.Request{
		Tokens:      tokens,
		FocusTokens: focus,
		Side:        side,
		PathHint:    path,
	})
	printResult(res)
	if !res.Matched {
		return fmt.Errorf("arrangement failed: %s", res.Reason)
	}
	return nil
}

func runEnumerate(steps int) error {
	cfg := setup()
	drv, err := driver.New()
	if err != nil {
		return fmt.Errorf("automation driver: %w", err)
	}
	enum := selection.Enumerate(drv, drv,
		steps, time.Duration(cfg.Selection.StepDelayMS)*time.Millisecond)

	rows := make([][]string, 0, len(enum.Observations))
	for _, obs := range enum.Observations {
		rect := ""
		if obs.Rect != nil {
			rect = fmt.Sprintf("%dx%d", obs.Rect.Width(), obs.Rect.Height())
		}
		rows = append(rows, []string{
			strconv.Itoa(obs.Step), obs.Name, rect, strconv.Itoa(int(obs.PID)),
		})
	}
	printTable([]string{"Step", "Name", "Size", "PID"}, rows)
	fmt.Printf("\n%d focus changes, %d distinct tiles\n", enum.FocusChanges, len(enum.UniqueNames))
	return nil
}

func runStatus() error {
	cfg := setup()
	drv, err := driver.New()
	if err != nil {
		return fmt.Errorf("automation driver: %w", err)
	}

	work, err := drv.WorkArea()
	if err != nil {
		return fmt.Errorf("work area: %w", err)
	}
	rows := [][]string{
		{"Work area", fmt.Sprintf("%dx%d", work.Width(), work.Height())},
	}
	if fg, err := drv.ForegroundWindow(); err == nil {
		rows = append(rows,
			[]string{"Foreground", fg.Title},
			[]string{"Rect", fmt.Sprintf("%d,%d %dx%d", fg.Rect.Left, fg.Rect.Top, fg.Rect.Width(), fg.Rect.Height())},
			[]string{"Snapped left", strconv.FormatBool(geometry.IsSnapped(fg.Rect, work, geometry.SideLeft, cfg.Snap.ToleranceRatio))},
			[]string{"Snapped right", strconv.FormatBool(geometry.IsSnapped(fg.Rect, work, geometry.SideRight, cfg.Snap.ToleranceRatio))},
		)
	}
	printTable([]string{"Property", "Value"}, rows)
	return nil
}

func runReplay(scenarioPath string, tokens []string, sideFlag string) error {
	side, err := parseSide(sideFlag)
	if err != nil {
		return err
	}
	cfg := setup()
	// Replay runs should not stall on simulated input.
	if overrides.StepDelayMS == 0 {
		cfg.Selection.StepDelayMS = 0
	}

	scenario, err := driver.LoadScenario(scenarioPath)
	if err != nil {
		return err
	}
	sd := driver.NewScripted(*scenario)
	tracker := splitstate.NewTracker(sd, time.Hour, cfg.Snap.ToleranceRatio)
	defer tracker.Stop()
	orch := orchestrator.New(sd, tracker, cfg)

	res := orch.Arrange(orchestrator.Request{Tokens: tokens, Side: side})
	printResult(res)
	fmt.Printf("\n%d simulated input steps\n", sd.StepCount())
	if len(res.NearMisses) > 0 {
		fmt.Println("Near misses:", strings.Join(res.NearMisses, ", "))
	}
	return nil
}

// printResult renders the outcome and the tail of the walk trace.
func printResult(res selection.Result) {
	rows := [][]string{
		{"ID", res.ID},
		{"Matched", strconv.FormatBool(res.Matched)},
	}
	if res.Matched {
		rows = append(rows,
			[]string{"Method", string(res.Method)},
			[]string{"Phase", string(res.Phase)},
			[]string{"Tile", res.FinalName},
		)
	} else {
		rows = append(rows, []string{"Reason", string(res.Reason)})
	}
	rows = append(rows, []string{"Focus changes", strconv.Itoa(res.FocusChanges)})
	printTable([]string{"Property", "Value"}, rows)

	if len(res.Summary) == 0 {
		return
	}
	fmt.Println()
	trace := make([][]string, 0, len(res.Summary))
	for _, obs := range res.Summary {
		trace = append(trace, []string{
			string(obs.Phase), strconv.Itoa(obs.Step), obs.Name, strconv.FormatBool(obs.Matched),
		})
	}
	printTable([]string{"Phase", "Step", "Name", "Matched"}, trace)
}

func printTable(headers []string, rows [][]string) {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().
		Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Println(t.Render())
}

// printConfigPath prints the config file path
func printConfigPath() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("could not determine config path: %w", err)
	}
	fmt.Println(path)
	return nil
}

// editConfigFile opens the config file in $EDITOR
func editConfigFile() error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("could not determine config path: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf("Config file doesn't exist, creating default at: %s\n", configPath)
		if _, err := config.LoadUserConfig(); err != nil {
			return fmt.Errorf("could not create config file: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command(editor, configPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// resetConfigToDefaults overwrites the config file with default settings
func resetConfigToDefaults() error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("could not determine config path: %w", err)
	}
	if err := config.SaveConfig(config.DefaultConfig(), configPath); err != nil {
		return fmt.Errorf("could not reset config: %w", err)
	}
	fmt.Printf("Configuration reset to defaults: %s\n", configPath)
	return nil
}
