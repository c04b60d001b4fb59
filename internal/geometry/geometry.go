// Package geometry computes target rectangles for split layouts and verifies
// whether a window occupies a snapped position. All calculations are based on
// the monitor work area (the usable screen excluding taskbars and docked UI).
package geometry

// Side identifies the half of the work area a window is snapped to.
type Side int

const (
	// SideNone indicates no snap side.
	SideNone Side = iota
	// SideLeft snaps to the left half of the work area.
	SideLeft
	// SideRight snaps to the right half of the work area.
	SideRight
)

// String returns the lowercase name of the side.
func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "none"
	}
}

// Opposite returns the other half, or SideNone for SideNone.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return SideNone
	}
}

// ParseSide parses "left" or "right" (case-sensitive lowercase, matching CLI
// flag values). Anything else yields SideNone.
func ParseSide(s string) Side {
	switch s {
	case "left":
		return SideLeft
	case "right":
		return SideRight
	default:
		return SideNone
	}
}

// Rect is a screen rectangle in virtual-desktop pixel coordinates.
// Right and Bottom are exclusive, matching the platform convention.
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Width returns the rectangle width in pixels.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the rectangle height in pixels.
func (r Rect) Height() int { return r.Bottom - r.Top }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (x, y int) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// HalfRects splits the work area into left and right halves. An odd-width
// work area gives the extra column to the right half.
func HalfRects(work Rect) (left, right Rect) {
	mid := work.Left + work.Width()/2
	left = Rect{Left: work.Left, Top: work.Top, Right: mid, Bottom: work.Bottom}
	right = Rect{Left: mid, Top: work.Top, Right: work.Right, Bottom: work.Bottom}
	return left, right
}

// QuadrantRects splits the work area into four quadrants.
func QuadrantRects(work Rect) (tl, tr, bl, br Rect) {
	midX := work.Left + work.Width()/2
	midY := work.Top + work.Height()/2
	tl = Rect{Left: work.Left, Top: work.Top, Right: midX, Bottom: midY}
	tr = Rect{Left: midX, Top: work.Top, Right: work.Right, Bottom: midY}
	bl = Rect{Left: work.Left, Top: midY, Right: midX, Bottom: work.Bottom}
	br = Rect{Left: midX, Top: midY, Right: work.Right, Bottom: work.Bottom}
	return tl, tr, bl, br
}

// ThirdRects splits the work area into three equal-width columns. Remainder
// columns go to the rightmost third.
func ThirdRects(work Rect) (c1, c2, c3 Rect) {
	third := work.Width() / 3
	x1 := work.Left + third
	x2 := work.Left + 2*third
	c1 = Rect{Left: work.Left, Top: work.Top, Right: x1, Bottom: work.Bottom}
	c2 = Rect{Left: x1, Top: work.Top, Right: x2, Bottom: work.Bottom}
	c3 = Rect{Left: x2, Top: work.Top, Right: work.Right, Bottom: work.Bottom}
	return c1, c2, c3
}

// IsSnapped reports whether win plausibly occupies the requested half of the
// work area. Snap implementations differ by a few pixels across OS versions,
// so the check is ratio-based rather than exact: the window width must be
// within tolerance of half the work area, and the near edge must sit within
// tolerance of the matching work-area edge.
func IsSnapped(win, work Rect, side Side, tolerance float64) bool {
	if work.Empty() || win.Empty() {
		return false
	}
	if side != SideLeft && side != SideRight {
		return false
	}
	if tolerance <= 0 {
		tolerance = DefaultSnapTolerance
	}

	ratio := float64(win.Width()) / float64(work.Width())
	if ratio < 0.5-tolerance || ratio > 0.5+tolerance {
		return false
	}

	edgeSlack := int(tolerance * float64(work.Width()))
	switch side {
	case SideLeft:
		return abs(win.Left-work.Left) <= edgeSlack
	case SideRight:
		return abs(win.Right-work.Right) <= edgeSlack
	}
	return false
}

// DefaultSnapTolerance is the width-ratio slack accepted by IsSnapped when no
// tolerance is configured. 0.12 accepts widths between 38% and 62% of the
// work area.
const DefaultSnapTolerance = 0.12

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
