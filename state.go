package msgqueue

import (
	"github.com/kernelbin/msgqueue/internal/cursor"
)

// SetStateWindow updates one of the per-queue weak window references
// and returns the previous value. No cross-queue
// bookkeeping happens here; callers that also need to update the subsystem
// foreground slot call Subsystem.SetForeground separately.
func (q *Queue) SetStateWindow(kind StateWindowKind, hwnd WindowHandle) WindowHandle {
	q.mu.Lock()
	defer q.mu.Unlock()

	var prev *WindowHandle
	switch kind {
	case StateCapture:
		prev = &q.capture
	case StateActive:
		prev = &q.active
	case StateFocus:
		prev = &q.focus
	case StateMenuOwner:
		prev = &q.menuOwner
	case StateMoveSize:
		prev = &q.moveSize
	case StateCaret:
		prev = &q.caret
	default:
		return 0
	}
	old := *prev
	*prev = hwnd
	return old
}

// StateWindow returns the current window for kind without changing it.
func (q *Queue) StateWindow(kind StateWindowKind) WindowHandle {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch kind {
	case StateCapture:
		return q.capture
	case StateActive:
		return q.active
	case StateFocus:
		return q.focus
	case StateMenuOwner:
		return q.menuOwner
	case StateMoveSize:
		return q.moveSize
	case StateCaret:
		return q.caret
	default:
		return 0
	}
}

// GetKeyState reports the current down/locked state of a single virtual
// key (GetKeyState/GetAsyncKeyState's queue-local view).
func (q *Queue) GetKeyState(vk int) (down, locked bool) {
	return q.keys.GetState(vk)
}

// GetKeyStateWord encodes GetKeyState's (down, locked) pair in the
// conventional word form: 0xFF80 when down, low bit when locked. An
// out-of-range vk reads as neither.
func (q *Queue) GetKeyStateWord(vk int) uint16 {
	down, locked := q.keys.GetState(vk)
	var w uint16
	if down {
		w |= 0xFF80
	}
	if locked {
		w |= 0x0001
	}
	return w
}

// GetKeyboardState returns the full 256-entry down/locked snapshot
// (GetKeyboardState).
func (q *Queue) GetKeyboardState() [256]byte {
	return q.keys.Snapshot()
}

// SetKeyboardState restores a full 256-entry snapshot (SetKeyboardState).
func (q *Queue) SetKeyboardState(state [256]byte) {
	q.keys.Restore(state)
}

// DownKeyState returns the MK_* mouse/modifier bit union for mouse message
// wParams, honoring the configured L/R button swap.
func (q *Queue) DownKeyState() uint32 {
	return q.keys.DownMask()
}

// SetCursor swaps this queue's cursor shape, returning the previous one.
func (q *Queue) SetCursor(c cursor.Cursor) cursor.Cursor {
	return q.subsystem.cursor.SetCursor(q, c)
}

// ShowCursor adjusts the visibility counter and returns its new value.
func (q *Queue) ShowCursor(show bool) int32 {
	return q.subsystem.cursor.ShowCursor(q, show)
}

// MsgExtraInfoGet returns the last extra-info value stashed by Set.
func (q *Queue) MsgExtraInfoGet() uintptr {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.extraInfo
}

// MsgExtraInfoSet stashes an extra-info value on the queue, returning the
// previous value. Post and PostMouseMove take their extra-info as an
// argument and do not read this value.
func (q *Queue) MsgExtraInfoSet(v uintptr) uintptr {
	q.mu.Lock()
	defer q.mu.Unlock()
	old := q.extraInfo
	q.extraInfo = v
	return old
}

// Reply stores result on the SentRecord this queue is currently
// dispatching: the eventual completion path reads this instead of the
// window procedure's own return value. Returns false if nothing is
// currently dispatching or it already has a result.
func (q *Queue) Reply(result uintptr) bool {
	return q.dispatcher.Reply(result)
}
