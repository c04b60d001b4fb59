package driver

import (
	"fmt"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/snapdock/snapdock/internal/geometry"
)

// TileSpec describes one picker tile in a scenario.
type TileSpec struct {
	Name string `toml:"name"`
	// Rect is left, top, right, bottom. Empty means the tile exposes no
	// bounding box and selection must fall back to the confirm key.
	Rect []int  `toml:"rect,omitempty"`
	PID  uint32 `toml:"pid,omitempty"`
}

// WindowSpec describes one top-level window in a scenario.
type WindowSpec struct {
	Title string `toml:"title"`
	Class string `toml:"class,omitempty"`
	PID   uint32 `toml:"pid,omitempty"`
	Rect  []int  `toml:"rect"`
}

// Scenario is a recorded picker session for replay: the focus cycle the
// picker would produce, the reachable accessibility tree, and the top-level
// windows on the desktop. Used by tests and by `snapdock replay` for token
// tuning without touching a live desktop.
type Scenario struct {
	WorkArea []int        `toml:"work_area,omitempty"`
	Tiles    []TileSpec   `toml:"tiles"`
	Tree     []TileSpec   `toml:"tree,omitempty"`
	Windows  []WindowSpec `toml:"windows,omitempty"`
	// SnapApplies makes SnapActive reshape the foreground window to the
	// requested half, so post-selection geometry verification passes.
	SnapApplies bool `toml:"snap_applies"`
}

// LoadScenario reads a TOML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	var sc Scenario
	if err := toml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

func specRect(spec []int) (geometry.Rect, bool) {
	if len(spec) != 4 {
		return geometry.Rect{}, false
	}
	return geometry.Rect{Left: spec[0], Top: spec[1], Right: spec[2], Bottom: spec[3]}, true
}

// Scripted replays a Scenario through the full capability surface. Focus
// starts on the first tile and wraps, which reproduces the small stable
// cycles the real picker produces. All methods are safe for concurrent use;
// the split-state verifier reads window state while an orchestration runs.
type Scripted struct {
	mu sync.Mutex

	scenario Scenario
	cursor   int

	windows map[WindowHandle]*scriptedWindow
	order   []WindowHandle
	fg      WindowHandle

	// Outcome recording for assertions and replay reports.
	Steps      []string
	ClickedAt  []geometry.Rect
	Confirmed  int
	SnappedTo  geometry.Side
	snapPlaced bool
}

type scriptedWindow struct {
	ref   WindowRef
	alive bool
}

// NewScripted builds a replay driver from a scenario.
func NewScripted(sc Scenario) *Scripted {
	s := &Scripted{
		scenario: sc,
		windows:  make(map[WindowHandle]*scriptedWindow),
	}
	for i, w := range sc.Windows {
		h := WindowHandle(i + 1)
		rect, _ := specRect(w.Rect)
		s.windows[h] = &scriptedWindow{
			ref: WindowRef{
				Handle:    h,
				Title:     w.Title,
				ClassName: w.Class,
				Rect:      rect,
				PID:       w.PID,
			},
			alive: true,
		}
		s.order = append(s.order, h)
	}
	if len(s.order) > 0 {
		s.fg = s.order[0]
	}
	return s
}

func (s *Scripted) record(step string) {
	s.Steps = append(s.Steps, step)
}

// ----------------------------------------------------------------------------
// Input
// ----------------------------------------------------------------------------

func (s *Scripted) NavigateNext() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("next")
	if n := len(s.scenario.Tiles); n > 0 {
		s.cursor = (s.cursor + 1) % n
	}
	return nil
}

func (s *Scripted) NavigateDown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("down")
	if n := len(s.scenario.Tiles); n > 0 {
		s.cursor = (s.cursor + 1) % n
	}
	return nil
}

func (s *Scripted) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("confirm")
	s.Confirmed++
	s.applySnapLocked()
	return nil
}

func (s *Scripted) ClickAt(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(fmt.Sprintf("click %d,%d", x, y))
	s.ClickedAt = append(s.ClickedAt, geometry.Rect{Left: x, Top: y, Right: x, Bottom: y})
	s.applySnapLocked()
	return nil
}

func (s *Scripted) SnapActive(side geometry.Side) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("snap " + side.String())
	s.SnappedTo = side
	if s.scenario.SnapApplies {
		if w, ok := s.windows[s.fg]; ok {
			left, right := geometry.HalfRects(s.workAreaLocked())
			if side == geometry.SideLeft {
				w.ref.Rect = left
			} else {
				w.ref.Rect = right
			}
			s.snapPlaced = true
		}
	}
	return nil
}

// applySnapLocked reshapes the partner window after a successful selection so
// both halves verify. The partner is the window whose title matches the tile
// under the cursor.
func (s *Scripted) applySnapLocked() {
	if !s.scenario.SnapApplies || !s.snapPlaced {
		return
	}
	if len(s.scenario.Tiles) == 0 {
		return
	}
	tile := s.scenario.Tiles[s.cursor]
	for _, h := range s.order {
		w := s.windows[h]
		if h == s.fg || !TitleMatches(w.ref.Title, []string{tile.Name}) {
			continue
		}
		left, right := geometry.HalfRects(s.workAreaLocked())
		if s.SnappedTo == geometry.SideLeft {
			w.ref.Rect = right
		} else {
			w.ref.Rect = left
		}
		return
	}
}

// ----------------------------------------------------------------------------
// Accessibility
// ----------------------------------------------------------------------------

func (s *Scripted) FocusedElement() (Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scenario.Tiles) == 0 {
		return Element{}, ErrNoElement
	}
	tile := s.scenario.Tiles[s.cursor]
	el := Element{Name: tile.Name, PID: tile.PID}
	if r, ok := specRect(tile.Rect); ok {
		el.Rect = &r
	}
	return el, nil
}

func (s *Scripted) Root() (Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scenario.Tree) == 0 {
		return nil, ErrNoTree
	}
	return &scriptedNode{tiles: s.scenario.Tree, index: -1}, nil
}

// scriptedNode walks the scenario tree as a root with one flat row of
// children. index -1 is the synthetic root.
type scriptedNode struct {
	tiles []TileSpec
	index int
}

func (n *scriptedNode) Element() Element {
	if n.index < 0 || n.index >= len(n.tiles) {
		return Element{}
	}
	tile := n.tiles[n.index]
	el := Element{Name: tile.Name, PID: tile.PID}
	if r, ok := specRect(tile.Rect); ok {
		el.Rect = &r
	}
	return el
}

func (n *scriptedNode) FirstChild() (Node, bool) {
	if n.index == -1 && len(n.tiles) > 0 {
		return &scriptedNode{tiles: n.tiles, index: 0}, true
	}
	return nil, false
}

func (n *scriptedNode) NextSibling() (Node, bool) {
	if n.index >= 0 && n.index+1 < len(n.tiles) {
		return &scriptedNode{tiles: n.tiles, index: n.index + 1}, true
	}
	return nil, false
}

// ----------------------------------------------------------------------------
// Desktop
// ----------------------------------------------------------------------------

func (s *Scripted) workAreaLocked() geometry.Rect {
	if r, ok := specRect(s.scenario.WorkArea); ok {
		return r
	}
	return geometry.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}
}

func (s *Scripted) WorkArea() (geometry.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workAreaLocked(), nil
}

func (s *Scripted) WindowRect(h WindowHandle) (geometry.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[h]
	if !ok || !w.alive {
		return geometry.Rect{}, fmt.Errorf("scripted: window %d gone", h)
	}
	return w.ref.Rect, nil
}

func (s *Scripted) ForegroundWindow() (WindowRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[s.fg]
	if !ok || !w.alive {
		return WindowRef{}, fmt.Errorf("scripted: no foreground window")
	}
	return w.ref, nil
}

func (s *Scripted) FocusWindow(h WindowHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[h]
	if !ok || !w.alive {
		return fmt.Errorf("scripted: window %d gone", h)
	}
	s.fg = h
	return nil
}

func (s *Scripted) IsWindowAlive(h WindowHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[h]
	return ok && w.alive
}

func (s *Scripted) FindWindow(tokens []string) (WindowRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.order {
		w := s.windows[h]
		if w.alive && TitleMatches(w.ref.Title, tokens) {
			return w.ref, true
		}
	}
	return WindowRef{}, false
}

// ----------------------------------------------------------------------------
// Test hooks
// ----------------------------------------------------------------------------

// CloseWindow marks a scripted window dead, simulating the user closing it.
func (s *Scripted) CloseWindow(h WindowHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[h]; ok {
		w.alive = false
	}
}

// MoveWindow reshapes a scripted window, simulating a manual drag.
func (s *Scripted) MoveWindow(h WindowHandle, rect geometry.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[h]; ok {
		w.ref.Rect = rect
	}
}

// StepCount returns the number of input-simulation calls made so far.
func (s *Scripted) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Steps)
}
