// Package driver defines the OS capabilities the selection engine consumes:
// synthesized navigate/confirm/click input, accessibility reads of the
// focused element, a bounded walk of the accessibility tree, and window
// geometry queries. Platform bindings live behind build tags; a scripted
// driver replays recorded candidate streams for tests and offline tuning.
package driver

import (
	"errors"
	"strings"
	"time"

	"github.com/snapdock/snapdock/internal/geometry"
	"github.com/snapdock/snapdock/internal/token"
)

var (
	// ErrUnsupported is returned by New on platforms without a binding.
	ErrUnsupported = errors.New("driver: automation not supported on this platform")
	// ErrNoElement is returned when no focused element can be read.
	ErrNoElement = errors.New("driver: no focused element")
	// ErrNoTree is returned when the accessibility tree root is unavailable.
	ErrNoTree = errors.New("driver: accessibility tree unavailable")
)

// WindowHandle is an opaque platform window handle.
type WindowHandle uintptr

// WindowRef is a borrowed snapshot of a top-level window. The underlying
// window can disappear at any time; re-validate liveness before acting on it.
type WindowRef struct {
	Handle    WindowHandle
	Title     string
	ClassName string
	Rect      geometry.Rect
	PID       uint32
}

// Element is an immutable snapshot of one accessibility element.
type Element struct {
	Name        string
	Rect        *geometry.Rect
	PID         uint32
	ControlKind uint32
}

// Node is one element of the accessibility tree, supporting the bounded
// sibling/child iteration the tree-search fallback needs.
type Node interface {
	Element() Element
	FirstChild() (Node, bool)
	NextSibling() (Node, bool)
}

// Input synthesizes user input. All methods are stateless and side-effecting;
// failures mean "this step produced no information", never a fatal condition.
type Input interface {
	// NavigateNext moves picker focus to the next tile.
	NavigateNext() error
	// NavigateDown moves picker focus down one row, escaping single-row cycles.
	NavigateDown() error
	// Confirm activates the focused tile.
	Confirm() error
	// ClickAt clicks the primary button at virtual-desktop coordinates.
	ClickAt(x, y int) error
	// SnapActive sends the OS edge-snap chord for the foreground window.
	SnapActive(side geometry.Side) error
}

// Accessibility reads the platform UI-automation tree.
type Accessibility interface {
	// FocusedElement returns a snapshot of the currently focused element.
	FocusedElement() (Element, error)
	// Root returns the accessibility tree root for the fallback walk.
	Root() (Node, error)
}

// Desktop exposes window geometry and foreground control.
type Desktop interface {
	WindowRect(h WindowHandle) (geometry.Rect, error)
	// WorkArea returns the usable screen rectangle of the primary monitor.
	WorkArea() (geometry.Rect, error)
	ForegroundWindow() (WindowRef, error)
	FocusWindow(h WindowHandle) error
	IsWindowAlive(h WindowHandle) bool
	// FindWindow returns the first visible top-level window whose title
	// contains any of the tokens (normalized containment).
	FindWindow(tokens []string) (WindowRef, bool)
}

// Driver bundles the full capability surface of one platform binding.
type Driver interface {
	Input
	Accessibility
	Desktop
}

// TitleMatches reports whether a window title contains any of the raw tokens
// after normalization. Shared by FindWindow implementations.
func TitleMatches(title string, tokens []string) bool {
	n := token.Normalize(title)
	if n == "" {
		return false
	}
	for _, t := range tokens {
		tn := token.Normalize(t)
		if tn != "" && strings.Contains(n, tn) {
			return true
		}
	}
	return false
}

// WaitForWindow polls the desktop until a window matching the tokens appears
// or the timeout elapses. Used before triggering an edge-snap so the launch
// target exists and can be focused.
func WaitForWindow(d Desktop, tokens []string, timeout, poll time.Duration) (WindowRef, bool) {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	for {
		if ref, ok := d.FindWindow(tokens); ok {
			return ref, true
		}
		if time.Now().After(deadline) {
			return WindowRef{}, false
		}
		time.Sleep(poll)
	}
}
