//go:build windows

package driver

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/snapdock/snapdock/internal/geometry"
	"golang.org/x/sys/windows"
)

// Virtual-key codes and event flags used for picker navigation.
const (
	vkReturn = 0x0D
	vkLeft   = 0x25
	vkRight  = 0x27
	vkDown   = 0x28
	vkLWin   = 0x5B

	keyeventfKeyUp = 0x0002

	mouseeventfLeftDown = 0x0002
	mouseeventfLeftUp   = 0x0004

	spiGetWorkArea = 0x0030

	// Delay between key down and key up. The picker ignores events that
	// arrive faster than its focus handling.
	keyDelay = 30 * time.Millisecond
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procKeybdEvent           = user32.NewProc("keybd_event")
	procMouseEvent           = user32.NewProc("mouse_event")
	procSetCursorPos         = user32.NewProc("SetCursorPos")
	procGetWindowRect        = user32.NewProc("GetWindowRect")
	procGetForegroundWindow  = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procIsWindow             = user32.NewProc("IsWindow")
	procIsWindowVisible      = user32.NewProc("IsWindowVisible")
	procEnumWindows          = user32.NewProc("EnumWindows")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetClassNameW        = user32.NewProc("GetClassNameW")
	procGetWindowThreadPID   = user32.NewProc("GetWindowThreadProcessId")
	procSystemParametersInfo = user32.NewProc("SystemParametersInfoW")
)

type rect32 struct {
	Left, Top, Right, Bottom int32
}

func (r rect32) toRect() geometry.Rect {
	return geometry.Rect{
		Left:   int(r.Left),
		Top:    int(r.Top),
		Right:  int(r.Right),
		Bottom: int(r.Bottom),
	}
}

// windowsDriver binds the capability interfaces to user32 and UI Automation.
type windowsDriver struct {
	uia *uiAutomation
}

// New initializes the Windows automation driver. The accessibility subsystem
// may legitimately be unavailable (COM init failure); in that case the driver
// still works for input and geometry, and accessibility reads return
// ErrNoElement/ErrNoTree so the caller can surface AccessibilityUnavailable.
func New() (Driver, error) {
	d := &windowsDriver{}
	uia, err := newUIAutomation()
	if err == nil {
		d.uia = uia
	}
	return d, nil
}

// ----------------------------------------------------------------------------
// Input
// ----------------------------------------------------------------------------

// press taps a key. keybd_event reports no failure; a lost keystroke shows
// up as a stagnant focus read on the next step instead.
func (d *windowsDriver) press(vk uintptr) error {
	procKeybdEvent.Call(vk, 0, 0, 0) //nolint:errcheck
	time.Sleep(keyDelay)
	procKeybdEvent.Call(vk, 0, keyeventfKeyUp, 0) //nolint:errcheck
	time.Sleep(keyDelay)
	return nil
}

func (d *windowsDriver) NavigateNext() error { return d.press(vkRight) }
func (d *windowsDriver) NavigateDown() error { return d.press(vkDown) }
func (d *windowsDriver) Confirm() error      { return d.press(vkReturn) }

func (d *windowsDriver) ClickAt(x, y int) error {
	ret, _, _ := procSetCursorPos.Call(uintptr(x), uintptr(y))
	if ret == 0 {
		return fmt.Errorf("driver: SetCursorPos(%d, %d) failed", x, y)
	}
	procMouseEvent.Call(mouseeventfLeftDown, 0, 0, 0, 0) //nolint:errcheck
	procMouseEvent.Call(mouseeventfLeftUp, 0, 0, 0, 0)   //nolint:errcheck
	return nil
}

// SnapActive holds the OS key and taps the arrow for the requested side,
// which snaps the foreground window and opens the tile picker on the
// opposite half.
func (d *windowsDriver) SnapActive(side geometry.Side) error {
	var arrow uintptr
	switch side {
	case geometry.SideLeft:
		arrow = vkLeft
	case geometry.SideRight:
		arrow = vkRight
	default:
		return fmt.Errorf("driver: cannot snap toward %s", side)
	}
	procKeybdEvent.Call(vkLWin, 0, 0, 0) //nolint:errcheck
	time.Sleep(keyDelay)
	procKeybdEvent.Call(arrow, 0, 0, 0) //nolint:errcheck
	time.Sleep(keyDelay)
	procKeybdEvent.Call(arrow, 0, keyeventfKeyUp, 0) //nolint:errcheck
	time.Sleep(keyDelay)
	procKeybdEvent.Call(vkLWin, 0, keyeventfKeyUp, 0) //nolint:errcheck
	return nil
}

// ----------------------------------------------------------------------------
// Accessibility
// ----------------------------------------------------------------------------

func (d *windowsDriver) FocusedElement() (Element, error) {
	if d.uia == nil {
		return Element{}, ErrNoElement
	}
	return d.uia.focusedElement()
}

func (d *windowsDriver) Root() (Node, error) {
	if d.uia == nil {
		return nil, ErrNoTree
	}
	return d.uia.root()
}

// ----------------------------------------------------------------------------
// Desktop
// ----------------------------------------------------------------------------

func (d *windowsDriver) WindowRect(h WindowHandle) (geometry.Rect, error) {
	var r rect32
	ret, _, _ := procGetWindowRect.Call(uintptr(h), uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return geometry.Rect{}, fmt.Errorf("driver: GetWindowRect failed for %#x", uintptr(h))
	}
	return r.toRect(), nil
}

func (d *windowsDriver) WorkArea() (geometry.Rect, error) {
	var r rect32
	ret, _, _ := procSystemParametersInfo.Call(spiGetWorkArea, 0, uintptr(unsafe.Pointer(&r)), 0)
	if ret == 0 {
		return geometry.Rect{}, fmt.Errorf("driver: SystemParametersInfo(SPI_GETWORKAREA) failed")
	}
	return r.toRect(), nil
}

func (d *windowsDriver) ForegroundWindow() (WindowRef, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return WindowRef{}, fmt.Errorf("driver: no foreground window")
	}
	return d.windowRef(hwnd), nil
}

func (d *windowsDriver) FocusWindow(h WindowHandle) error {
	ret, _, _ := procSetForegroundWindow.Call(uintptr(h))
	if ret == 0 {
		return fmt.Errorf("driver: SetForegroundWindow failed for %#x", uintptr(h))
	}
	return nil
}

func (d *windowsDriver) IsWindowAlive(h WindowHandle) bool {
	if h == 0 {
		return false
	}
	ret, _, _ := procIsWindow.Call(uintptr(h))
	return ret != 0
}

func (d *windowsDriver) FindWindow(tokens []string) (WindowRef, bool) {
	var found WindowRef
	ok := false
	cb := windows.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if vis, _, _ := procIsWindowVisible.Call(hwnd); vis == 0 {
			return 1 // continue
		}
		title := windowText(hwnd)
		if title == "" || !TitleMatches(title, tokens) {
			return 1
		}
		found = d.windowRef(hwnd)
		ok = true
		return 0 // stop enumeration
	})
	procEnumWindows.Call(cb, 0) //nolint:errcheck
	return found, ok
}

func (d *windowsDriver) windowRef(hwnd uintptr) WindowRef {
	ref := WindowRef{
		Handle: WindowHandle(hwnd),
		Title:  windowText(hwnd),
	}
	var class [256]uint16
	if n, _, _ := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&class[0])), uintptr(len(class))); n > 0 {
		ref.ClassName = windows.UTF16ToString(class[:n])
	}
	var pid uint32
	procGetWindowThreadPID.Call(hwnd, uintptr(unsafe.Pointer(&pid))) //nolint:errcheck
	ref.PID = pid
	if r, err := d.WindowRect(ref.Handle); err == nil {
		ref.Rect = r
	}
	return ref
}

func windowText(hwnd uintptr) string {
	var buf [512]uint16
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}
