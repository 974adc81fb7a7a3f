package msgqueue

import (
	"time"

	"github.com/kernelbin/msgqueue/internal/cooker"
	"github.com/kernelbin/msgqueue/internal/keystate"
	"github.com/kernelbin/msgqueue/internal/msgpool"
)

// WindowFilterKind discriminates Peek's window-handle filter.
type WindowFilterKind int

const (
	FilterAny      WindowFilterKind = iota // match any window
	FilterBottom                           // null-hwnd records only
	FilterSpecific                         // match exactly Handle
)

const wmMouseMoveCode = 0x0200

// PeekFilter selects which queued message Peek should return.
type PeekFilter struct {
	Window WindowFilterKind
	Handle WindowHandle

	// CodeLo/CodeHi bound the message code range. Both zero means "match any
	// code the QSFlags category would admit". When CodeLo > CodeHi the range
	// is treated permissively (code >= CodeLo || code <= CodeHi) rather than
	// rejected — a long-standing, deliberately preserved quirk; see
	// TestPeekRangeFilterIsPermissive.
	CodeLo, CodeHi uint32

	QSFlags Mask
	Remove  bool
}

func matchWindow(f PeekFilter, handle uintptr, code uint32) bool {
	if code == wmMouseMoveCode && handle == 0 {
		return true // null-hwnd mouse moves always pass the window filter
	}
	switch f.Window {
	case FilterBottom:
		return handle == 0
	case FilterSpecific:
		return handle == uintptr(f.Handle)
	default:
		return true
	}
}

func matchCode(f PeekFilter, code uint32) bool {
	if f.CodeLo == 0 && f.CodeHi == 0 {
		return true
	}
	if f.CodeLo <= f.CodeHi {
		return code >= f.CodeLo && code <= f.CodeHi
	}
	return code >= f.CodeLo || code <= f.CodeHi
}

// Peek implements the two-phase hardware-then-posted walk:
// hardware messages are tried first (subject to the cooker and the
// idSysPeek reentrancy guard, since cooking a hardware record can itself
// recursively call back into window procedures that peek), then the
// ordinary posted list. Returns false if nothing currently matches filter.
func (q *Queue) Peek(filter PeekFilter) (Message, bool) {
	q.mu.Lock()
	if q.sysPeek {
		q.mu.Unlock()
		if msg, ok := q.peekPosted(filter); ok {
			return msg, true
		}
		return q.peekQuit(filter)
	}
	q.sysPeek = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.sysPeek = false
		q.mu.Unlock()
	}()

	if msg, ok := q.peekHardware(filter); ok {
		return msg, true
	}
	if msg, ok := q.peekPosted(filter); ok {
		return msg, true
	}
	return q.peekQuit(filter)
}

// peekQuit synthesizes WM_QUIT once the hardware and posted lists are both
// exhausted: quit is never held as a record, only as the
// quitPosted/exitCode flags PostQuit sets, so it is observed here rather
// than unlinked from any FIFO.
func (q *Queue) peekQuit(filter PeekFilter) (Message, bool) {
	q.mu.Lock()
	posted, exitCode := q.quitPosted, q.exitCode
	q.mu.Unlock()
	if !posted {
		return Message{}, false
	}
	if !matchWindow(filter, 0, wmQuit) || !matchCode(filter, wmQuit) {
		return Message{}, false
	}
	if filter.QSFlags != 0 && QS_POSTMESSAGE&filter.QSFlags == 0 {
		return Message{}, false
	}

	msg := Message{Code: wmQuit, WParam: uintptr(exitCode)}
	if q.thread != nil {
		msg.Time = q.thread.TickCount()
	}
	if filter.Remove {
		q.mu.Lock()
		q.quitPosted = false
		q.mu.Unlock()
		q.wake.Clear(QS_POSTMESSAGE)
	}
	return msg, true
}

func isMouseHardwareCode(code uint32) bool {
	return code >= cooker.WM_MOUSEMOVE && code <= cooker.WM_XBUTTONDBLCLK
}

func isKeyHardwareCode(code uint32) bool {
	return code == cooker.WM_KEYDOWN || code == cooker.WM_KEYUP
}

func xButtonFromWParam(code uint32, wParam uintptr) uint16 {
	switch code {
	case cooker.WM_XBUTTONDOWN, cooker.WM_XBUTTONUP, cooker.WM_XBUTTONDBLCLK:
		return uint16(wParam >> 16)
	default:
		return 0
	}
}

// peekHardware walks the hardware FIFO. A record that matches filter but
// hasn't been cooked yet is run through HardwareCooker first: a drop
// verdict unlinks it and the scan moves on to the next candidate; a deliver
// verdict overwrites the record's Handle/Code/WParam/LParam with the
// cooker's translation and marks it cooked, so a later Peek that doesn't
// remove it won't re-run hit-testing and double-click synthesis against an
// already-delivered event.
func (q *Queue) peekHardware(filter PeekFilter) (Message, bool) {
	q.mu.Lock()
	capture, active, menuOwner, moveSize := q.capture, q.active, q.menuOwner, q.moveSize
	q.mu.Unlock()

	q.hardware.Lock()
	defer q.hardware.Unlock()

	for e := q.hardware.FrontLocked(); e != nil; {
		rec := q.hardware.ValueLocked(e)
		next := q.hardware.NextLocked(e)

		if !matchWindow(filter, rec.Handle, rec.Code) || !matchCode(filter, rec.Code) {
			e = next
			continue
		}
		if filter.QSFlags != 0 && Mask(rec.WakeMask)&filter.QSFlags == 0 {
			e = next
			continue
		}

		if !rec.Cooked && q.cooker != nil {
			dropped := false
			switch {
			case isMouseHardwareCode(rec.Code):
				outcome := q.cooker.CookMouse(cooker.MouseInput{
					Code:          rec.Code,
					X:             rec.PointX,
					Y:             rec.PointY,
					Time:          rec.Time,
					KeyState:      rec.WParam,
					ExtraInfo:     rec.ExtraPtr,
					XButton:       xButtonFromWParam(rec.Code, rec.WParam),
					CaptureWindow: capture,
					HasCapture:    capture != 0,
					ActiveWindow:  active,
					MenuOwned:     menuOwner != 0,
					MoveSizeOwned: moveSize != 0,
				})
				if outcome.Action == cooker.ActionDrop {
					dropped = true
					break
				}
				rec.Handle = uintptr(outcome.Window)
				rec.Code = outcome.Code
				rec.WParam = outcome.WParam
				rec.LParam = outcome.LParam
				rec.Cooked = true
			case isKeyHardwareCode(rec.Code):
				outcome := q.cooker.CookKey(cooker.KeyInput{
					Code:         rec.Code,
					VKey:         int(rec.WParam),
					Unified:      keystate.Unify(int(rec.WParam)),
					MenuOwned:    menuOwner != 0,
					IMEAllowed:   true,
					TargetWindow: WindowHandle(rec.Handle),
				})
				if outcome.Action == cooker.ActionDrop {
					dropped = true
					break
				}
				rec.WParam = uintptr(outcome.VKey)
				rec.Cooked = true
			default:
				rec.Cooked = true
			}
			if dropped {
				q.hardware.RemoveAndRelease(e)
				e = next
				continue
			}
		}

		q.keys.UpdateFromMessage(int(rec.Code), int(rec.WParam))
		msg := toMessage(rec)

		if filter.Remove {
			q.hardware.RemoveAndRelease(e)
		}
		return msg, true
	}
	return Message{}, false
}

func (q *Queue) peekPosted(filter PeekFilter) (Message, bool) {
	q.posted.Lock()
	defer q.posted.Unlock()

	for e := q.posted.FrontLocked(); e != nil; e = q.posted.NextLocked(e) {
		rec := q.posted.ValueLocked(e)
		if !matchWindow(filter, rec.Handle, rec.Code) || !matchCode(filter, rec.Code) {
			continue
		}
		if filter.QSFlags != 0 && Mask(rec.WakeMask)&filter.QSFlags == 0 {
			continue
		}

		msg := toMessage(rec)
		if filter.Remove {
			q.posted.RemoveAndRelease(e)
		}
		return msg, true
	}
	return Message{}, false
}

func toMessage(rec *msgpool.Record) Message {
	return Message{
		Window:    WindowHandle(rec.Handle),
		Code:      rec.Code,
		WParam:    rec.WParam,
		LParam:    rec.LParam,
		Time:      rec.Time,
		PointX:    rec.PointX,
		PointY:    rec.PointY,
		ExtraInfo: rec.ExtraPtr,
	}
}

// PeekWaitOption configures WaitForNewMessages' notion of "something
// arrived".
type PeekWaitOption struct {
	// InputAvailable selects MWMO_INPUTAVAILABLE semantics: the wait is
	// satisfied by any currently-pending input (the persistent wake-bits
	// summary), not only input that has arrived since the last read (the
	// change-bits summary, ChangeBits' default). A caller that already
	// drained every message on a prior pass wants the default so it
	// doesn't spin on stale bits; a caller that just attached and wants to
	// catch up on whatever is already queued sets this.
	InputAvailable bool
	Mask           Mask // QS_* categories this wait cares about; 0 means any
}

// WaitForNewMessages blocks on this queue's wake event until something
// matching opts is pending, or done is closed. The caller is expected to
// drop any lock of its own before calling this and re-acquire after, since
// this call may take arbitrarily long.
func (q *Queue) WaitForNewMessages(done <-chan struct{}, opts PeekWaitOption) {
	for {
		if q.wakeSatisfied(opts) {
			return
		}
		select {
		case <-q.event.wait():
		case <-done:
			return
		}
	}
}

func (q *Queue) wakeSatisfied(opts PeekWaitOption) bool {
	var bits Mask
	if opts.InputAvailable {
		bits = q.wake.WakeBits()
	} else {
		bits = q.wake.ChangeBits()
	}
	if opts.Mask == 0 {
		return bits != 0
	}
	return bits&opts.Mask != 0
}

// IsHung reports whether the wall-clock delta since the last dispatched
// message exceeds the configured hung threshold.
func (q *Queue) IsHung() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return time.Since(q.hungSince) > q.hungAfter
}

// MarkDispatched resets the hung-detection clock — called by the caller's
// message loop each time it successfully dispatches a message.
func (q *Queue) MarkDispatched() {
	q.mu.Lock()
	q.hungSince = time.Now()
	q.mu.Unlock()
}
