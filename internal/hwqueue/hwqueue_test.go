package hwqueue_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kernelbin/msgqueue/internal/hwqueue"
	"github.com/kernelbin/msgqueue/internal/msgpool"
	"github.com/kernelbin/msgqueue/internal/wake"
)

type fixedClock struct{ t uint32 }

func (c *fixedClock) TickCount() uint32 { c.t++; return c.t }

// TestCoalesceThreeMoves pins mouse-move coalescing: successive moves with
// no intervening button collapse into a single queued record.
func TestCoalesceThreeMoves(t *testing.T) {
	pool := msgpool.New()
	counters := wake.New(nil)
	q := hwqueue.New(pool, counters, &fixedClock{})

	q.PostMove(10, 10, 0, 1)
	q.PostMove(11, 11, 0, 1)
	q.PostMove(12, 12, 0, 1)

	require.Equal(t, 1, q.Len())
	e := q.Front()
	rec := q.ValueLocked(e)
	require.Equal(t, int32(12), rec.PointX)
	require.Equal(t, int32(12), rec.PointY)
	require.EqualValues(t, 1, counters.Count(wake.MouseMove))
}

// TestMoveBeforeClickOrdering pins the move-then-click ordering invariant
//: a pending move must be materialised before the next button
// record, never after.
func TestMoveBeforeClickOrdering(t *testing.T) {
	pool := msgpool.New()
	counters := wake.New(nil)
	q := hwqueue.New(pool, counters, &fixedClock{})

	q.PostMove(5, 5, 0, 1)
	q.PostButton(msgpool.Record{Code: 0x0201}, wake.MouseButton, 0) // WM_LBUTTONDOWN

	require.Equal(t, 2, q.Len())
	e := q.Front()
	first := q.ValueLocked(e)
	require.Equal(t, uint32(0x0200), first.Code, "move must be materialised before the click")
	second := q.ValueLocked(q.NextLocked(e))
	require.Equal(t, uint32(0x0201), second.Code)
}

// TestAtMostOneTrailingMove is a property test: after any sequence of
// moves and button posts, the tail is the only WM_MOUSEMOVE.
func TestAtMostOneTrailingMove(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		pool := msgpool.New()
		counters := wake.New(nil)
		q := hwqueue.New(pool, counters, &fixedClock{})

		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "isMove") {
				x := rapid.Int32Range(0, 1000).Draw(rt, "x")
				y := rapid.Int32Range(0, 1000).Draw(rt, "y")
				q.PostMove(x, y, 0, 1)
			} else {
				q.PostButton(msgpool.Record{Code: 0x0201}, wake.MouseButton, 0)
			}
		}

		q.Lock()
		moveCount := 0
		for e := q.FrontLocked(); e != nil; e = q.NextLocked(e) {
			if q.ValueLocked(e).Code == 0x0200 {
				moveCount++
			}
		}
		q.Unlock()
		if moveCount > 1 {
			rt.Fatalf("found %d WM_MOUSEMOVE records, want at most 1", moveCount)
		}
	})
}
