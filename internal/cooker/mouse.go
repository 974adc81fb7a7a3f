package cooker

import "time"

// MouseAction is the cooker's verdict on a hardware mouse record.
type MouseAction int

const (
	// ActionDrop means the record must be removed from the hardware queue
	// without being delivered anywhere (hit-test failure, hook suppression,
	// click-lock absorbing the click).
	ActionDrop MouseAction = iota
	// ActionDeliver means Code/WParam/LParam/Window carry the message to
	// dispatch to Window.
	ActionDeliver
)

// MouseInput is one hardware mouse record as it arrives at the cooker, a
// flattened view of msgpool.Record's mouse-relevant fields.
type MouseInput struct {
	Code      uint32
	X, Y      int32
	Time      uint32
	KeyState  uintptr // MK_* mask for wParam
	ExtraInfo uintptr
	XButton   uint16 // only meaningful for XBUTTON* codes

	CaptureWindow WindowHandle
	HasCapture    bool
	ActiveWindow  WindowHandle
	MenuOwned     bool
	MoveSizeOwned bool
}

// MouseOutcome is what the Peek loop does with the input after cooking.
type MouseOutcome struct {
	Action MouseAction
	Window WindowHandle
	Code   uint32
	WParam uintptr
	LParam uintptr
}

func packPoint(x, y int32) uintptr {
	return uintptr(uint32(x)&0xFFFF) | uintptr(uint32(y)&0xFFFF)<<16
}

func isDownMessage(code uint32) bool {
	switch code {
	case WM_LBUTTONDOWN, WM_RBUTTONDOWN, WM_MBUTTONDOWN, WM_XBUTTONDOWN:
		return true
	default:
		return false
	}
}

// CookMouse runs the full hit-test/tracking/synthesize/hook/activate
// pipeline over a single hardware mouse record and returns the verdict.
// Move coalescing happens earlier, in the hardware queue.
func (c *Cooker) CookMouse(in MouseInput) MouseOutcome {
	win, hit, ok := c.hitTest(in)
	if !ok {
		if c.cursor != nil {
			c.cursor.ResetToDefaultArrow(c.self)
		}
		return MouseOutcome{Action: ActionDrop}
	}

	if c.cursor != nil {
		c.cursor.SetOwner(c.self)
		c.cursor.SetPointerPosition(in.X, in.Y)
		c.updateTracking(win, hit)
	}

	if in.Code == WM_MOUSEMOVE {
		c.markHoverExit(win, in.X, in.Y)
	}

	code, wParam, lParam := c.translate(win, hit, in)

	if isDownMessage(in.Code) {
		code = c.synthesizeDoubleClick(win, code, in)
	}

	if c.clickLockGate(in, code) {
		return MouseOutcome{Action: ActionDrop}
	}

	if c.hooksGate(code, wParam, lParam) {
		return MouseOutcome{Action: ActionDrop}
	}

	if isDownMessage(in.Code) {
		if c.notifyParentsAndActivate(win, in.ActiveWindow) {
			return MouseOutcome{Action: ActionDrop}
		}
	}

	if c.poster != nil {
		c.poster.Send(win, WM_SETCURSOR, uintptr(win), uintptr(in.Code))
	}

	return MouseOutcome{Action: ActionDeliver, Window: win, Code: code, WParam: wParam, LParam: lParam}
}

// hitTest is step 1/2: capture wins outright; otherwise ask the window tree.
// A null result, or a result belonging to a different queue, fails the gate.
func (c *Cooker) hitTest(in MouseInput) (WindowHandle, int, bool) {
	if in.HasCapture {
		return in.CaptureWindow, HTClient, true
	}
	win, hit, ok := c.tree.WindowFromPoint(in.X, in.Y)
	if !ok || win == 0 {
		return 0, 0, false
	}
	if c.tree.QueueOwning(win) != c.self {
		return 0, 0, false
	}
	return win, hit, true
}

// updateTracking is step 3: LEAVE/NCLEAVE on tracked-window or
// client/non-client border crossing, plus hover-rectangle bookkeeping.
func (c *Cooker) updateTracking(win WindowHandle, hit int) {
	changed := !c.track.hasWindow || c.track.window != win || c.track.hitCode != hit
	if changed && c.track.hasWindow {
		leaveMsg := uint32(WM_MOUSELEAVE)
		if c.track.hitCode != HTClient {
			leaveMsg = WM_NCMOUSELEAVE
		}
		if c.poster != nil {
			c.poster.Post(c.track.window, leaveMsg, 0, 0)
		}
		if c.timers != nil {
			c.timers.KillHoverTimer(c.track.window)
		}
	}
	c.track.window, c.track.hasWindow, c.track.hitCode = win, true, hit
}

// markHoverExit restarts the hover timer and re-centres the hover rectangle
// when the pointer leaves it — called from CookMouse on every WM_MOUSEMOVE
// that passes hit-testing, whether or not a cursor owner is wired.
func (c *Cooker) markHoverExit(win WindowHandle, x, y int32) {
	if c.track.hoverActive {
		dx, dy := x-c.track.hoverX, y-c.track.hoverY
		if dx > -c.cfg.HoverSize && dx < c.cfg.HoverSize && dy > -c.cfg.HoverSize && dy < c.cfg.HoverSize {
			return
		}
	}
	c.track.hoverX, c.track.hoverY, c.track.hoverActive = x, y, true
	if c.timers != nil {
		c.timers.SetHoverTimer(win, c.cfg.HoverIntervalMS)
	}
}

// translate is steps 4/9-ish groundwork: NC translation and client-coordinate
// conversion, leaving activation/setcursor to their own steps.
func (c *Cooker) translate(win WindowHandle, hit int, in MouseInput) (code uint32, wParam, lParam uintptr) {
	code = in.Code
	x, y := in.X, in.Y

	if hit != HTClient {
		if code != WM_MOUSEWHEEL {
			code = uint32(int32(code) + ncOffset)
		}
		wParam = uintptr(hit)
		lParam = packPoint(x, y)
		return code, wParam, lParam
	}

	if !in.MenuOwned {
		x, y = c.tree.ToClientCoords(win, x, y)
	}
	wParam = in.KeyState
	if code == WM_XBUTTONDOWN || code == WM_XBUTTONUP || code == WM_XBUTTONDBLCLK {
		wParam |= uintptr(in.XButton) << 16
	}
	lParam = packPoint(x, y)
	return code, wParam, lParam
}

// synthesizeDoubleClick is step 5.
func (c *Cooker) synthesizeDoubleClick(win WindowHandle, code uint32, in MouseInput) uint32 {
	eligible := c.tree.ClassHasDoubleClicks(win) || in.MenuOwned || in.MoveSizeOwned || c.track.hitCode != HTClient

	result := code
	if eligible && c.dblck.valid &&
		c.dblck.code == in.Code &&
		c.dblck.window == win &&
		c.dblck.xButton == in.XButton &&
		timeDelta(in.Time, c.dblck.time) <= durationToTicks(c.cfg.DoubleClickInterval) &&
		within(in.X, c.dblck.x, c.cfg.DoubleClickSlop) &&
		within(in.Y, c.dblck.y, c.cfg.DoubleClickSlop) {
		result = dblClkCodeFor(in.Code)
		c.dblck.valid = false
		return result
	}

	if eligible {
		c.dblck = dblClkState{valid: true, code: in.Code, window: win, x: in.X, y: in.Y, time: in.Time, xButton: in.XButton}
	} else {
		c.dblck.valid = false
	}
	return result
}

func dblClkCodeFor(downCode uint32) uint32 {
	switch downCode {
	case WM_LBUTTONDOWN:
		return WM_LBUTTONDBLCLK
	case WM_RBUTTONDOWN:
		return WM_RBUTTONDBLCLK
	case WM_MBUTTONDOWN:
		return WM_MBUTTONDBLCLK
	case WM_XBUTTONDOWN:
		return WM_XBUTTONDBLCLK
	default:
		return downCode
	}
}

func timeDelta(a, b uint32) uint32 {
	if a >= b {
		return a - b
	}
	return b - a
}

func durationToTicks(d time.Duration) uint32 { return uint32(d.Milliseconds()) }

// ticksToTime lifts a monotonic millisecond tick count into a time.Time so
// it can be compared against cursor.Ownership's click-lock timer, which is
// expressed in wall time for testability.
func ticksToTime(ms uint32) time.Time {
	return time.Unix(0, 0).Add(time.Duration(ms) * time.Millisecond)
}

func within(a, b, slop int32) bool {
	d := a - b
	return d >= -slop && d <= slop
}

// clickLockGate is step 6.
func (c *Cooker) clickLockGate(in MouseInput, code uint32) bool {
	if c.cursor == nil {
		return false
	}
	switch code {
	case WM_LBUTTONDOWN:
		return c.cursor.RecordButtonDown(ticksToTime(in.Time))
	case WM_LBUTTONUP:
		return c.cursor.RecordButtonUp(ticksToTime(in.Time), c.cfg.ClickLockThreshold)
	default:
		return false
	}
}

// hooksGate is step 7: journal, WH_MOUSE, and on suppression WH_CBT
// CLICKSKIPPED.
func (c *Cooker) hooksGate(code uint32, wParam, lParam uintptr) bool {
	if c.hooks == nil {
		return false
	}
	if c.hooks.CallJournal(code, wParam, lParam) {
		c.hooks.CallCBTClickSkipped(code, wParam, lParam)
		return true
	}
	if c.hooks.CallMouseHook(code, wParam, lParam) {
		c.hooks.CallCBTClickSkipped(code, wParam, lParam)
		return true
	}
	return false
}

// notifyParentsAndActivate is step 8. Returns true if the activation
// disposition says to eat the button-down that triggered it
// (MA_ACTIVATEANDEAT / MA_NOACTIVATEANDEAT).
func (c *Cooker) notifyParentsAndActivate(win, active WindowHandle) bool {
	if c.poster != nil && !c.tree.ExNoParentNotify(win) {
		for _, ancestor := range c.tree.ParentNotifyChain(win) {
			c.poster.Post(ancestor, WM_PARENTNOTIFY, uintptr(win), 0)
		}
	}

	if win == active {
		return false
	}
	target, ok := c.tree.NonChildAncestor(win)
	if !ok || c.poster == nil {
		return false
	}
	result := c.poster.Send(target, WM_MOUSEACTIVATE, uintptr(target), uintptr(win))
	return result == MA_ACTIVATEANDEAT || result == MA_NOACTIVATEANDEAT
}
