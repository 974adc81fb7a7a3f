// Package cooker implements the hardware-message preprocessor: hit
// testing, mouse tracking and NC/client translation, double-click
// synthesis, click-lock, hook consultation, parent-notify/activation, and
// the keyboard-side equivalents. It turns raw device events into
// dispatchable window messages.
package cooker

import "time"

// WindowHandle is a weak, opaque window identity. The root package
// re-exports this type so callers never construct one themselves — it only
// ever flows out of a WindowTree implementation.
type WindowHandle uintptr

// Win32 message codes the cooker reads or produces. Only the ones the
// cooker itself touches are named here; everything else is opaque payload.
const (
	wmMouseFirst     = 0x0200
	WM_MOUSEMOVE     = 0x0200
	WM_LBUTTONDOWN   = 0x0201
	WM_LBUTTONUP     = 0x0202
	WM_LBUTTONDBLCLK = 0x0203
	WM_RBUTTONDOWN   = 0x0204
	WM_RBUTTONUP     = 0x0205
	WM_RBUTTONDBLCLK = 0x0206
	WM_MBUTTONDOWN   = 0x0207
	WM_MBUTTONUP     = 0x0208
	WM_MBUTTONDBLCLK = 0x0209
	WM_MOUSEWHEEL    = 0x020A
	WM_XBUTTONDOWN   = 0x020B
	WM_XBUTTONUP     = 0x020C
	WM_XBUTTONDBLCLK = 0x020D

	WM_NCMOUSEMOVE  = 0x00A0
	WM_MOUSELEAVE   = 0x02A3
	WM_NCMOUSELEAVE = 0x02A2

	ncOffset = WM_NCMOUSEMOVE - WM_MOUSEMOVE

	WM_PARENTNOTIFY   = 0x0210
	WM_MOUSEACTIVATE  = 0x0021
	WM_SETCURSOR      = 0x0020
	WM_CONTEXTMENU    = 0x007B
	WM_APPCOMMAND     = 0x0319

	// MA_* are WM_MOUSEACTIVATE return-value dispositions. The ANDEAT
	// variants mean the button-down that triggered activation must not
	// also be delivered as a click.
	MA_ACTIVATE         = 1
	MA_ACTIVATEANDEAT   = 2
	MA_NOACTIVATE       = 3
	MA_NOACTIVATEANDEAT = 4
	wmKeyF1Undoc      = 0x004D // undocumented WM_KEYF1 help message

	WM_KEYDOWN = 0x0100
	WM_KEYUP   = 0x0101

	VK_F1       = 0x70
	VK_APPS     = 0x5D
	vkBrowserLo = 0xA6
	vkLaunchHi  = 0xB7
)

// HTClient is the only hit-test code the cooker treats as "client"; every
// other value is non-client (caption, border, and so on).
const HTClient = 1

// WindowTree is the hit-testing and ancestry collaborator.
type WindowTree interface {
	WindowFromPoint(x, y int32) (win WindowHandle, hitCode int, ok bool)
	NonChildAncestor(win WindowHandle) (WindowHandle, bool)
	ParentNotifyChain(win WindowHandle) []WindowHandle
	QueueOwning(win WindowHandle) uintptr
	ClassHasDoubleClicks(win WindowHandle) bool
	ExNoParentNotify(win WindowHandle) bool
	ToClientCoords(win WindowHandle, x, y int32) (int32, int32)
}

// HookChain is the pre-installed filter chain.
type HookChain interface {
	CallJournal(msg uint32, wParam, lParam uintptr) (suppress bool)
	CallMouseHook(msg uint32, wParam, lParam uintptr) (suppress bool)
	CallCBTClickSkipped(msg uint32, wParam, lParam uintptr)
	CallKeyboardHook(vk int, down bool) (suppress bool)
}

// Timers is the hover-tracking collaborator.
type Timers interface {
	SetHoverTimer(win WindowHandle, intervalMS uint32)
	KillHoverTimer(win WindowHandle)
}

// IME result flags from ProcessKey.
const (
	IMEHotkey = 1 << iota
	IMESkipThisKey
	IMEProcessByIME
)

// IME is the input-method collaborator.
type IME interface {
	ProcessKey(win WindowHandle, msg uint32, wParam, lParam uintptr) int
}

// CursorOwner is the narrow slice of cursor.Ownership the cooker needs.
type CursorOwner interface {
	IsOwner(self uintptr) bool
	SetOwner(self uintptr)
	SetPointerPosition(x, y int32)
	ResetToDefaultArrow(self uintptr)
	RecordButtonDown(now time.Time) bool
	RecordButtonUp(now time.Time, threshold time.Duration) bool
}

// Poster delivers the secondary, fire-and-forget side effects the cooker
// generates (tracking leave/enter, parent-notify, F1/context-menu/app-
// command synthesis) and the one synchronous round-trip it needs
// (WM_MOUSEACTIVATE, WM_SETCURSOR).
type Poster interface {
	Post(win WindowHandle, msg uint32, wParam, lParam uintptr)
	Send(win WindowHandle, msg uint32, wParam, lParam uintptr) uintptr
}

// Config holds the cooker's tunables.
type Config struct {
	DoubleClickInterval time.Duration
	DoubleClickSlop     int32
	HoverSize           int32
	HoverIntervalMS     uint32
	ClickLockThreshold  time.Duration
}

// DefaultConfig matches the conventional Win32 defaults.
func DefaultConfig() Config {
	return Config{
		DoubleClickInterval: 500 * time.Millisecond,
		DoubleClickSlop:     4,
		HoverSize:           4,
		HoverIntervalMS:     400,
		ClickLockThreshold:  1200 * time.Millisecond,
	}
}

type tracking struct {
	window      WindowHandle
	hasWindow   bool
	hitCode     int
	hoverX      int32
	hoverY      int32
	hoverActive bool
}

type dblClkState struct {
	valid   bool
	code    uint32
	window  WindowHandle
	x, y    int32
	time    uint32
	xButton uint16
}

// Cooker is the per-queue hardware-message preprocessor. self is this
// queue's opaque identity, used to tell "my window" from "someone else's".
type Cooker struct {
	self   uintptr
	cfg    Config
	tree   WindowTree
	hooks  HookChain
	timers Timers
	ime    IME
	cursor CursorOwner
	poster Poster

	track tracking
	dblck dblClkState
}

// New returns a Cooker bound to one queue's collaborators.
func New(self uintptr, cfg Config, tree WindowTree, hooks HookChain, timers Timers, ime IME, cursorOwner CursorOwner, poster Poster) *Cooker {
	return &Cooker{self: self, cfg: cfg, tree: tree, hooks: hooks, timers: timers, ime: ime, cursor: cursorOwner, poster: poster}
}
