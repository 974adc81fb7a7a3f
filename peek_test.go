package msgqueue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kernelbin/msgqueue"
	"github.com/kernelbin/msgqueue/internal/cooker"
)

// singleWindowTree is the smallest WindowTree that lets the cooker hit-test
// successfully: every point lands on the one bound window, in the client
// area, with no ancestors to notify.
type singleWindowTree struct {
	win   msgqueue.WindowHandle
	owner uintptr
	miss  bool // force WindowFromPoint to fail, for the drop-path test
}

func (t *singleWindowTree) WindowFromPoint(x, y int32) (msgqueue.WindowHandle, int, bool) {
	if t.miss {
		return 0, 0, false
	}
	return t.win, 1, true // HTClient
}
func (t *singleWindowTree) NonChildAncestor(win msgqueue.WindowHandle) (msgqueue.WindowHandle, bool) {
	return win, true
}
func (t *singleWindowTree) ParentNotifyChain(win msgqueue.WindowHandle) []msgqueue.WindowHandle {
	return nil
}
func (t *singleWindowTree) QueueOwning(win msgqueue.WindowHandle) uintptr { return t.owner }
func (t *singleWindowTree) ClassHasDoubleClicks(win msgqueue.WindowHandle) bool { return false }
func (t *singleWindowTree) ExNoParentNotify(win msgqueue.WindowHandle) bool     { return true }
func (t *singleWindowTree) ToClientCoords(win msgqueue.WindowHandle, x, y int32) (int32, int32) {
	return x, y
}

type noopHooks struct{}

func (noopHooks) CallJournal(msg uint32, wParam, lParam uintptr) bool   { return false }
func (noopHooks) CallMouseHook(msg uint32, wParam, lParam uintptr) bool { return false }
func (noopHooks) CallCBTClickSkipped(msg uint32, wParam, lParam uintptr) {}
func (noopHooks) CallKeyboardHook(vk int, down bool) bool { return false }

type noopTimers struct{}

func (noopTimers) SetHoverTimer(win msgqueue.WindowHandle, intervalMS uint32) {}
func (noopTimers) KillHoverTimer(win msgqueue.WindowHandle)                   {}

type noopIME struct{}

func (noopIME) ProcessKey(win msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) int {
	return 0
}

// recordingPoster satisfies cooker.Poster; Send always succeeds silently so
// the cooker's own WM_SETCURSOR/WM_MOUSEACTIVATE round trips never veto
// delivery in these tests.
type recordingPoster struct {
	posts []uint32
}

func (p *recordingPoster) Post(win msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) {
	p.posts = append(p.posts, msg)
}
func (p *recordingPoster) Send(win msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr {
	return 0
}

// TestPeekCooksHardwareMouseMessage pins the fix to the central gap this
// session closed: a hardware-queued mouse message must be run through the
// cooker (hit test + NC/client translation) before Peek hands it back, not
// delivered with its raw pre-cook fields.
func TestPeekCooksHardwareMouseMessage(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	win := msgqueue.WindowHandle(1)
	tree := &singleWindowTree{win: win, owner: 1}
	poster := &recordingPoster{}

	q := newTestQueue(t, sub, 1, msgqueue.WithCooker(
		cooker.DefaultConfig(), tree, noopHooks{}, noopTimers{}, noopIME{}, poster,
	))
	tree.owner = uintptr(q.ID())

	const wmLButtonDown = 0x0201
	q.Post(q, win, wmLButtonDown, 0, 0, 0, msgqueue.QueuedEventNone, msgqueue.QS_MOUSEBUTTON, true)

	msg, ok := q.Peek(msgqueue.PeekFilter{Remove: true})
	require.True(t, ok)
	require.Equal(t, win, msg.Window, "cooked message must carry the hit-tested window")
	require.EqualValues(t, wmLButtonDown, msg.Code)
}

// TestPeekDropsHardwareMessageOnHitTestFailure pins the drop branch: a
// record the cooker can't hit-test is unlinked rather than ever handed back.
func TestPeekDropsHardwareMessageOnHitTestFailure(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	win := msgqueue.WindowHandle(1)
	tree := &singleWindowTree{win: win, owner: 1, miss: true}
	poster := &recordingPoster{}

	q := newTestQueue(t, sub, 1, msgqueue.WithCooker(
		cooker.DefaultConfig(), tree, noopHooks{}, noopTimers{}, noopIME{}, poster,
	))

	const wmLButtonDown = 0x0201
	q.Post(q, win, wmLButtonDown, 0, 0, 0, msgqueue.QueuedEventNone, msgqueue.QS_MOUSEBUTTON, true)

	_, ok := q.Peek(msgqueue.PeekFilter{Remove: true})
	require.False(t, ok, "a hit-test failure must drop the record, not deliver it")

	_, ok = q.Peek(msgqueue.PeekFilter{Remove: true})
	require.False(t, ok, "the dropped record must not still be sitting in the hardware queue")
}
