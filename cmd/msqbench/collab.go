package main

import (
	"sync"
	"sync/atomic"

	"github.com/kernelbin/msgqueue"
)

// flatWindowTree is a trivial WindowTree: every thread owns exactly one
// window, hit-testing always lands in its client area, and there is no
// parent chain to walk. It exists so the benchmark can drive the cooker's
// full hit-test/activation pipeline without standing up a real window
// manager, which the msgqueue package only ever talks to through the
// WindowTree interface.
type flatWindowTree struct {
	mu      sync.Mutex
	windows map[msgqueue.WindowHandle]uintptr // window -> owning queue id
}

func newFlatWindowTree() *flatWindowTree {
	return &flatWindowTree{windows: make(map[msgqueue.WindowHandle]uintptr)}
}

func (t *flatWindowTree) bind(win msgqueue.WindowHandle, owner uintptr) {
	t.mu.Lock()
	t.windows[win] = owner
	t.mu.Unlock()
}

func (t *flatWindowTree) WindowFromPoint(x, y int32) (msgqueue.WindowHandle, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for win := range t.windows {
		return win, 1, true // HTClient
	}
	return 0, 0, false
}

func (t *flatWindowTree) NonChildAncestor(win msgqueue.WindowHandle) (msgqueue.WindowHandle, bool) {
	return win, true
}

func (t *flatWindowTree) ParentNotifyChain(win msgqueue.WindowHandle) []msgqueue.WindowHandle {
	return nil
}

func (t *flatWindowTree) QueueOwning(win msgqueue.WindowHandle) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.windows[win]
}

func (t *flatWindowTree) ClassHasDoubleClicks(win msgqueue.WindowHandle) bool { return true }
func (t *flatWindowTree) ExNoParentNotify(win msgqueue.WindowHandle) bool     { return true }
func (t *flatWindowTree) ToClientCoords(win msgqueue.WindowHandle, x, y int32) (int32, int32) {
	return x, y
}

// noopHooks answers every hook consultation with "not suppressed" — the
// benchmark measures queue throughput, not hook-chain policy.
type noopHooks struct{}

func (noopHooks) CallJournal(msg uint32, wParam, lParam uintptr) bool     { return false }
func (noopHooks) CallMouseHook(msg uint32, wParam, lParam uintptr) bool   { return false }
func (noopHooks) CallCBTClickSkipped(msg uint32, wParam, lParam uintptr) {}
func (noopHooks) CallKeyboardHook(vk int, down bool) bool                { return false }

// noopTimers discards hover-timer requests; the benchmark doesn't model
// wall-clock hover delivery.
type noopTimers struct{}

func (noopTimers) SetHoverTimer(win msgqueue.WindowHandle, intervalMS uint32) {}
func (noopTimers) KillHoverTimer(win msgqueue.WindowHandle)                   {}

// passthroughIME never intercepts a key.
type passthroughIME struct{}

func (passthroughIME) ProcessKey(win msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) int {
	return 0
}

// countingPoster counts the secondary Post/Send traffic the cooker itself
// generates (tracking leave/enter, WM_SETCURSOR, activation) apart from the
// benchmark driver's own traffic. Summary does not report these counts.
type countingPoster struct {
	target    *msgqueue.Queue
	self      *msgqueue.Queue
	posts     int64
	sendRound int64
}

func (p *countingPoster) Post(win msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) {
	atomic.AddInt64(&p.posts, 1)
	p.self.Post(p.target, win, msg, wParam, lParam, 0, msgqueue.QueuedEventNone, msgqueue.QS_POSTMESSAGE, false)
}

func (p *countingPoster) Send(win msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr {
	atomic.AddInt64(&p.sendRound, 1)
	return 0
}

// echoWindowProc is the benchmark's window procedure: it acknowledges
// every sent message by returning wParam+lParam, the same synthetic
// contract msgqueue_test.go's stubInvoker uses, and counts deliveries.
type echoWindowProc struct {
	delivered int64
}

func (w *echoWindowProc) InvokeWindowProc(hwnd msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr {
	atomic.AddInt64(&w.delivered, 1)
	return wParam + lParam
}

// silentRenderer discards every cursor instruction — msqbench has no
// on-screen surface, only the bookkeeping cursor.Ownership performs
// regardless of whether anything is actually drawn.
type silentRenderer struct{}

func (silentRenderer) SetPointerShape(c msgqueue.Cursor, x, y int32) {}
func (silentRenderer) MovePointer(x, y int32)                        {}
