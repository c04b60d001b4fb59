//go:build windows

package driver

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

// Minimal UI Automation COM binding: just enough of IUIAutomation,
// IUIAutomationElement, and IUIAutomationTreeWalker to read the focused
// element and walk the control view. Property access goes through the raw
// vtables; nothing here subscribes to events.

var (
	clsidCUIAutomation = ole.NewGUID("{FF48DBA4-60EF-4201-AA87-54103EEF594E}")
	iidIUIAutomation   = ole.NewGUID("{30CBE57D-D9D0-452A-AB13-7AC5AC4825EE}")
)

type uiaVtbl struct {
	ole.IUnknownVtbl
	CompareElements             uintptr
	CompareRuntimeIds           uintptr
	GetRootElement              uintptr
	ElementFromHandle           uintptr
	ElementFromPoint            uintptr
	GetFocusedElement           uintptr
	GetRootElementBuildCache    uintptr
	ElementFromHandleBuildCache uintptr
	ElementFromPointBuildCache  uintptr
	GetFocusedElementBuildCache uintptr
	CreateTreeWalker            uintptr
	GetControlViewWalker        uintptr
	GetContentViewWalker        uintptr
	GetRawViewWalker            uintptr
}

type uiaElementVtbl struct {
	ole.IUnknownVtbl
	SetFocus                        uintptr
	GetRuntimeId                    uintptr
	FindFirst                       uintptr
	FindAll                         uintptr
	FindFirstBuildCache             uintptr
	FindAllBuildCache               uintptr
	BuildUpdatedCache               uintptr
	GetCurrentPropertyValue         uintptr
	GetCurrentPropertyValueEx       uintptr
	GetCachedPropertyValue          uintptr
	GetCachedPropertyValueEx        uintptr
	GetCurrentPatternAs             uintptr
	GetCachedPatternAs              uintptr
	GetCurrentPattern               uintptr
	GetCachedPattern                uintptr
	GetCachedParent                 uintptr
	GetCachedChildren               uintptr
	GetCurrentProcessId             uintptr
	GetCurrentControlType           uintptr
	GetCurrentLocalizedControlType  uintptr
	GetCurrentName                  uintptr
	GetCurrentAcceleratorKey        uintptr
	GetCurrentAccessKey             uintptr
	GetCurrentHasKeyboardFocus      uintptr
	GetCurrentIsKeyboardFocusable   uintptr
	GetCurrentIsEnabled             uintptr
	GetCurrentAutomationId          uintptr
	GetCurrentClassName             uintptr
	GetCurrentHelpText              uintptr
	GetCurrentCulture               uintptr
	GetCurrentIsControlElement      uintptr
	GetCurrentIsContentElement      uintptr
	GetCurrentIsPassword            uintptr
	GetCurrentNativeWindowHandle    uintptr
	GetCurrentItemType              uintptr
	GetCurrentIsOffscreen           uintptr
	GetCurrentOrientation           uintptr
	GetCurrentFrameworkId           uintptr
	GetCurrentIsRequiredForForm     uintptr
	GetCurrentItemStatus            uintptr
	GetCurrentBoundingRectangle     uintptr
	GetCurrentLabeledBy             uintptr
	GetCurrentAriaRole              uintptr
	GetCurrentAriaProperties        uintptr
	GetCurrentIsDataValidForForm    uintptr
	GetCurrentControllerFor         uintptr
	GetCurrentDescribedBy           uintptr
	GetCurrentFlowsTo               uintptr
	GetCurrentProviderDescription   uintptr
	GetCachedProcessId              uintptr
	GetCachedControlType            uintptr
	GetCachedLocalizedControlType   uintptr
	GetCachedName                   uintptr
	GetCachedAcceleratorKey         uintptr
	GetCachedAccessKey              uintptr
	GetCachedHasKeyboardFocus       uintptr
	GetCachedIsKeyboardFocusable    uintptr
	GetCachedIsEnabled              uintptr
	GetCachedAutomationId           uintptr
	GetCachedClassName              uintptr
	GetCachedHelpText               uintptr
	GetCachedCulture                uintptr
	GetCachedIsControlElement       uintptr
	GetCachedIsContentElement       uintptr
	GetCachedIsPassword             uintptr
	GetCachedNativeWindowHandle     uintptr
	GetCachedItemType               uintptr
	GetCachedIsOffscreen            uintptr
	GetCachedOrientation            uintptr
	GetCachedFrameworkId            uintptr
	GetCachedIsRequiredForForm      uintptr
	GetCachedItemStatus             uintptr
	GetCachedBoundingRectangle      uintptr
	GetCachedLabeledBy              uintptr
	GetCachedAriaRole               uintptr
	GetCachedAriaProperties         uintptr
	GetCachedIsDataValidForForm     uintptr
	GetCachedControllerFor          uintptr
	GetCachedDescribedBy            uintptr
	GetCachedFlowsTo                uintptr
	GetCachedProviderDescription    uintptr
	GetClickablePoint               uintptr
}

type uiaWalkerVtbl struct {
	ole.IUnknownVtbl
	GetParentElement          uintptr
	GetFirstChildElement      uintptr
	GetLastChildElement       uintptr
	GetNextSiblingElement     uintptr
	GetPreviousSiblingElement uintptr
}

type uiaObject struct {
	ole.IUnknown
}

func (u *uiaObject) vtbl() *uiaVtbl { return (*uiaVtbl)(unsafe.Pointer(u.RawVTable)) }

type uiaElement struct {
	ole.IUnknown
}

func (e *uiaElement) vtbl() *uiaElementVtbl { return (*uiaElementVtbl)(unsafe.Pointer(e.RawVTable)) }

type uiaWalker struct {
	ole.IUnknown
}

func (w *uiaWalker) vtbl() *uiaWalkerVtbl { return (*uiaWalkerVtbl)(unsafe.Pointer(w.RawVTable)) }

// uiAutomation owns the automation object and a control-view walker.
type uiAutomation struct {
	auto   *uiaObject
	walker *uiaWalker
}

func newUIAutomation() (*uiAutomation, error) {
	// S_FALSE (already initialized) is fine.
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != uintptr(windows.S_FALSE) {
			return nil, fmt.Errorf("driver: COM init: %w", err)
		}
	}
	unk, err := ole.CreateInstance(clsidCUIAutomation, iidIUIAutomation)
	if err != nil {
		return nil, fmt.Errorf("driver: CUIAutomation: %w", err)
	}
	u := &uiAutomation{auto: (*uiaObject)(unsafe.Pointer(unk))}

	var walker *uiaWalker
	hr, _, _ := syscall.SyscallN(u.auto.vtbl().GetControlViewWalker,
		uintptr(unsafe.Pointer(u.auto)),
		uintptr(unsafe.Pointer(&walker)))
	if hr != 0 || walker == nil {
		u.auto.Release()
		return nil, fmt.Errorf("driver: ControlViewWalker: HRESULT %#x", hr)
	}
	u.walker = walker
	return u, nil
}

func (u *uiAutomation) focusedElement() (Element, error) {
	var el *uiaElement
	hr, _, _ := syscall.SyscallN(u.auto.vtbl().GetFocusedElement,
		uintptr(unsafe.Pointer(u.auto)),
		uintptr(unsafe.Pointer(&el)))
	if hr != 0 || el == nil {
		return Element{}, ErrNoElement
	}
	defer el.Release()
	return el.snapshot(), nil
}

func (u *uiAutomation) root() (Node, error) {
	var el *uiaElement
	hr, _, _ := syscall.SyscallN(u.auto.vtbl().GetRootElement,
		uintptr(unsafe.Pointer(u.auto)),
		uintptr(unsafe.Pointer(&el)))
	if hr != 0 || el == nil {
		return nil, ErrNoTree
	}
	return &uiaNode{walker: u.walker, el: el}, nil
}

// snapshot copies the properties the engine needs; every read is best-effort.
func (e *uiaElement) snapshot() Element {
	var out Element
	var bstr *uint16
	if hr, _, _ := syscall.SyscallN(e.vtbl().GetCurrentName,
		uintptr(unsafe.Pointer(e)), uintptr(unsafe.Pointer(&bstr))); hr == 0 && bstr != nil {
		out.Name = windows.UTF16PtrToString(bstr)
		ole.SysFreeString((*int16)(unsafe.Pointer(bstr))) //nolint:errcheck
	}
	var pid int32
	if hr, _, _ := syscall.SyscallN(e.vtbl().GetCurrentProcessId,
		uintptr(unsafe.Pointer(e)), uintptr(unsafe.Pointer(&pid))); hr == 0 {
		out.PID = uint32(pid)
	}
	var ctl int32
	if hr, _, _ := syscall.SyscallN(e.vtbl().GetCurrentControlType,
		uintptr(unsafe.Pointer(e)), uintptr(unsafe.Pointer(&ctl))); hr == 0 {
		out.ControlKind = uint32(ctl)
	}
	var r rect32
	if hr, _, _ := syscall.SyscallN(e.vtbl().GetCurrentBoundingRectangle,
		uintptr(unsafe.Pointer(e)), uintptr(unsafe.Pointer(&r))); hr == 0 {
		rect := r.toRect()
		if !rect.Empty() {
			out.Rect = &rect
		}
	}
	return out
}

// uiaNode adapts a COM element to the Node interface. Close releases the COM
// reference; the tree walk closes nodes as it leaves them.
type uiaNode struct {
	walker *uiaWalker
	el     *uiaElement
}

func (n *uiaNode) Element() Element { return n.el.snapshot() }

func (n *uiaNode) FirstChild() (Node, bool) {
	return n.step(n.walker.vtbl().GetFirstChildElement)
}

func (n *uiaNode) NextSibling() (Node, bool) {
	return n.step(n.walker.vtbl().GetNextSiblingElement)
}

func (n *uiaNode) step(method uintptr) (Node, bool) {
	var el *uiaElement
	hr, _, _ := syscall.SyscallN(method,
		uintptr(unsafe.Pointer(n.walker)),
		uintptr(unsafe.Pointer(n.el)),
		uintptr(unsafe.Pointer(&el)))
	if hr != 0 || el == nil {
		return nil, false
	}
	return &uiaNode{walker: n.walker, el: el}, true
}

func (n *uiaNode) Close() error {
	if n.el != nil {
		n.el.Release()
		n.el = nil
	}
	return nil
}
