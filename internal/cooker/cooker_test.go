package cooker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kernelbin/msgqueue/internal/cooker"
	"github.com/kernelbin/msgqueue/internal/cursor"
)

const self = uintptr(1)
const otherQueue = uintptr(2)
const win1 = cooker.WindowHandle(100)

type fakeTree struct {
	win        cooker.WindowHandle
	hit        int
	ok         bool
	owner      uintptr
	dblClicks  bool
	noParent   bool
	ancestors  []cooker.WindowHandle
	nonChild   cooker.WindowHandle
	haveNonChild bool
}

func (f *fakeTree) WindowFromPoint(x, y int32) (cooker.WindowHandle, int, bool) {
	return f.win, f.hit, f.ok
}
func (f *fakeTree) NonChildAncestor(win cooker.WindowHandle) (cooker.WindowHandle, bool) {
	return f.nonChild, f.haveNonChild
}
func (f *fakeTree) ParentNotifyChain(win cooker.WindowHandle) []cooker.WindowHandle { return f.ancestors }
func (f *fakeTree) QueueOwning(win cooker.WindowHandle) uintptr                     { return f.owner }
func (f *fakeTree) ClassHasDoubleClicks(win cooker.WindowHandle) bool               { return f.dblClicks }
func (f *fakeTree) ExNoParentNotify(win cooker.WindowHandle) bool                   { return f.noParent }
func (f *fakeTree) ToClientCoords(win cooker.WindowHandle, x, y int32) (int32, int32) {
	return x, y
}

type recordingPoster struct {
	posts      []uint32
	sends      []uint32
	sendResult uintptr
}

func (p *recordingPoster) Post(win cooker.WindowHandle, msg uint32, wParam, lParam uintptr) {
	p.posts = append(p.posts, msg)
}
func (p *recordingPoster) Send(win cooker.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr {
	p.sends = append(p.sends, msg)
	return p.sendResult
}

func newCooker(tree *fakeTree, poster *recordingPoster, cur cooker.CursorOwner) *cooker.Cooker {
	return cooker.New(self, cooker.DefaultConfig(), tree, nil, nil, nil, cur, poster)
}

type fakeTimers struct {
	hoverSet    int
	hoverKilled int
}

func (f *fakeTimers) SetHoverTimer(win cooker.WindowHandle, intervalMS uint32) { f.hoverSet++ }
func (f *fakeTimers) KillHoverTimer(win cooker.WindowHandle)                  { f.hoverKilled++ }

func TestMouseMoveArmsHoverTimer(t *testing.T) {
	tree := &fakeTree{ok: true, win: win1, hit: cooker.HTClient, owner: self}
	timers := &fakeTimers{}
	c := cooker.New(self, cooker.DefaultConfig(), tree, nil, timers, nil, nil, &recordingPoster{})

	c.CookMouse(cooker.MouseInput{Code: cooker.WM_MOUSEMOVE, X: 5, Y: 5})
	require.Equal(t, 1, timers.hoverSet, "first move into a window must arm the hover timer")

	c.CookMouse(cooker.MouseInput{Code: cooker.WM_MOUSEMOVE, X: 6, Y: 6})
	require.Equal(t, 1, timers.hoverSet, "staying within the hover rectangle must not re-arm the timer")

	c.CookMouse(cooker.MouseInput{Code: cooker.WM_MOUSEMOVE, X: 500, Y: 500})
	require.Equal(t, 2, timers.hoverSet, "leaving the hover rectangle must re-arm the timer")
}

// TestHitTestFailureDropsAndResetsCursor covers a failed hit-test: the
// mouse record is dropped and the cursor resets to the default arrow.
func TestHitTestFailureDropsAndResetsCursor(t *testing.T) {
	tree := &fakeTree{ok: false}
	cur := cursor.New[uintptr](&noopRenderer{})
	c := newCooker(tree, &recordingPoster{}, cur)
	cur.SetCursor(self, cursor.Cursor{Handle: 0x10})

	out := c.CookMouse(cooker.MouseInput{Code: cooker.WM_MOUSEMOVE, X: 5, Y: 5})
	require.Equal(t, cooker.ActionDrop, out.Action)
	require.Equal(t, cursor.Cursor{}, cur.SetCursor(self, cursor.Cursor{}), "a failed hit-test must reset the cursor to the default arrow")
}

func TestHitTestWrongQueueDrops(t *testing.T) {
	tree := &fakeTree{ok: true, win: win1, hit: cooker.HTClient, owner: otherQueue}
	c := newCooker(tree, &recordingPoster{}, nil)

	out := c.CookMouse(cooker.MouseInput{Code: cooker.WM_MOUSEMOVE, X: 5, Y: 5})
	require.Equal(t, cooker.ActionDrop, out.Action)
}

// TestDoubleClickSynthesis pins double-click synthesis: two qualifying
// clicks within the window's double-click time and distance collapse into
// a WM_LBUTTONDBLCLK.
func TestDoubleClickSynthesis(t *testing.T) {
	tree := &fakeTree{ok: true, win: win1, hit: cooker.HTClient, owner: self, dblClicks: true}
	poster := &recordingPoster{}
	c := newCooker(tree, poster, nil)

	first := c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONDOWN, X: 5, Y: 5, Time: 0})
	require.Equal(t, cooker.ActionDeliver, first.Action)
	require.EqualValues(t, cooker.WM_LBUTTONDOWN, first.Code)

	second := c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONDOWN, X: 6, Y: 6, Time: 100})
	require.Equal(t, cooker.ActionDeliver, second.Action)
	require.EqualValues(t, cooker.WM_LBUTTONDBLCLK, second.Code)
}

func TestDoubleClickOutsideWindowStaysDown(t *testing.T) {
	tree := &fakeTree{ok: true, win: win1, hit: cooker.HTClient, owner: self, dblClicks: true}
	c := newCooker(tree, &recordingPoster{}, nil)

	c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONDOWN, X: 5, Y: 5, Time: 0})
	second := c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONDOWN, X: 5, Y: 5, Time: 900})
	require.EqualValues(t, cooker.WM_LBUTTONDOWN, second.Code, "outside the time window, the second click stays a plain DOWN")
}

func TestParentNotifyWalksAncestorChain(t *testing.T) {
	ancestors := []cooker.WindowHandle{10, 20, 30}
	tree := &fakeTree{ok: true, win: win1, hit: cooker.HTClient, owner: self, ancestors: ancestors}
	poster := &recordingPoster{}
	c := newCooker(tree, poster, nil)

	c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONDOWN, X: 1, Y: 1})

	count := 0
	for _, m := range poster.posts {
		if m == cooker.WM_PARENTNOTIFY {
			count++
		}
	}
	require.Equal(t, len(ancestors), count)
}

func TestMouseActivateAndEatDropsTheDown(t *testing.T) {
	tree := &fakeTree{ok: true, win: win1, hit: cooker.HTClient, owner: self, nonChild: 99, haveNonChild: true}
	poster := &recordingPoster{sendResult: cooker.MA_ACTIVATEANDEAT}
	c := newCooker(tree, poster, nil)

	out := c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONDOWN, X: 1, Y: 1, ActiveWindow: 0})
	require.Equal(t, cooker.ActionDrop, out.Action, "MA_ACTIVATEANDEAT must eat the triggering button-down")

	require.Contains(t, poster.sends, uint32(cooker.WM_MOUSEACTIVATE))
}

func TestMouseActivateWithoutEatDelivers(t *testing.T) {
	tree := &fakeTree{ok: true, win: win1, hit: cooker.HTClient, owner: self, nonChild: 99, haveNonChild: true}
	poster := &recordingPoster{sendResult: cooker.MA_ACTIVATE}
	c := newCooker(tree, poster, nil)

	out := c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONDOWN, X: 1, Y: 1, ActiveWindow: 0})
	require.Equal(t, cooker.ActionDeliver, out.Action, "plain MA_ACTIVATE must still deliver the button-down")
}

func TestClickLockAbsorbsSubsequentDown(t *testing.T) {
	tree := &fakeTree{ok: true, win: win1, hit: cooker.HTClient, owner: self}
	cur := cursor.New[uintptr](&noopRenderer{})

	c := newCooker(tree, &recordingPoster{}, cur)

	c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONDOWN, Time: 0})
	upOut := c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONUP, Time: uint32((2 * time.Second).Milliseconds())})
	require.Equal(t, cooker.ActionDrop, upOut.Action, "hold past the threshold must arm click-lock and drop the up")

	downOut := c.CookMouse(cooker.MouseInput{Code: cooker.WM_LBUTTONDOWN, Time: uint32((3 * time.Second).Milliseconds())})
	require.Equal(t, cooker.ActionDrop, downOut.Action, "a down while locked must clear the lock and drop")
}

type noopRenderer struct{}

func (noopRenderer) SetPointerShape(c cursor.Cursor, x, y int32) {}
func (noopRenderer) MovePointer(x, y int32)                      {}
