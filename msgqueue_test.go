package msgqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kernelbin/msgqueue"
)

type fakeThread struct {
	tick uint32
	proc uintptr
}

func (f *fakeThread) TickCount() uint32   { f.tick++; return f.tick }
func (f *fakeThread) ProcessID() uintptr { return f.proc }

func newTestQueue(t *testing.T, sub *msgqueue.Subsystem, id msgqueue.ThreadID, opts ...msgqueue.Option) *msgqueue.Queue {
	t.Helper()
	return msgqueue.NewQueue(sub, id, &fakeThread{}, opts...)
}

func TestPostThenPeekRoundTrip(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	q := newTestQueue(t, sub, 1)

	ok := q.Post(q, 0, 0x0400, 1, 2, 0, msgqueue.QueuedEventNone, msgqueue.QS_POSTMESSAGE, false)
	require.True(t, ok)

	msg, ok := q.Peek(msgqueue.PeekFilter{Remove: true})
	require.True(t, ok)
	require.EqualValues(t, 0x0400, msg.Code)
	require.EqualValues(t, 1, msg.WParam)
	require.EqualValues(t, 2, msg.LParam)

	_, ok = q.Peek(msgqueue.PeekFilter{Remove: true})
	require.False(t, ok, "queue must be empty after the single posted message was removed")
}

// TestPeekRangeFilterIsPermissive pins the long-standing, deliberately
// preserved quirk: when CodeLo > CodeHi the range is treated as "outside
// [CodeHi, CodeLo]" rather than rejected outright.
func TestPeekRangeFilterIsPermissive(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	q := newTestQueue(t, sub, 1)

	q.Post(q, 0, 0x0002, 0, 0, 0, msgqueue.QueuedEventNone, msgqueue.QS_POSTMESSAGE, false)

	msg, ok := q.Peek(msgqueue.PeekFilter{
		CodeLo: 0x0020,
		CodeHi: 0x0005,
		Remove: true,
	})
	require.True(t, ok, "a code outside [CodeHi, CodeLo] must still match when CodeLo > CodeHi")
	require.EqualValues(t, 0x0002, msg.Code)
}

type stubInvoker struct {
	fn func(hwnd msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr
}

func (s *stubInvoker) InvokeWindowProc(hwnd msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr {
	return s.fn(hwnd, msg, wParam, lParam)
}

// TestBlockingSendCrossThreadDispatch pins the normal synchronous round
// trip: sender blocks in Send until the receiver's own goroutine drives
// DispatchOneSent, which invokes the window procedure and returns a result.
func TestBlockingSendCrossThreadDispatch(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	receiver := newTestQueue(t, sub, 2, msgqueue.WithWindowProc(&stubInvoker{
		fn: func(hwnd msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr {
			return wParam + lParam
		},
	}))
	sender := newTestQueue(t, sub, 1)

	done := make(chan struct{})
	go func() {
		for {
			if receiver.DispatchOneSent() {
				return
			}
			select {
			case <-done:
				return
			case <-time.After(time.Millisecond):
			}
		}
	}()
	defer close(done)

	result, err := sender.Send(context.Background(), receiver, 0, 0x0111, 3, 4, msgqueue.SendOptions{Blocking: true})
	require.NoError(t, err)
	require.EqualValues(t, 7, result)
}

// TestReceiverDeathUnblocksSender pins the receiver-death branch: tearing
// down the receiver while a blocking send is outstanding wakes the sender
// with ReceiverDied rather than hanging forever.
func TestReceiverDeathUnblocksSender(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	receiver := newTestQueue(t, sub, 2, msgqueue.WithWindowProc(&stubInvoker{
		fn: func(hwnd msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr { return 0 },
	}))
	sender := newTestQueue(t, sub, 1)

	errCh := make(chan error, 1)
	go func() {
		_, err := sender.Send(context.Background(), receiver, 0, 0x0111, 0, 0, msgqueue.SendOptions{Blocking: true})
		errCh <- err
	}()

	// Give the send a chance to land in the receiver's inbox before tearing
	// it down.
	time.Sleep(20 * time.Millisecond)
	receiver.Release()

	select {
	case err := <-errCh:
		require.Error(t, err)
		require.ErrorIs(t, err, &msgqueue.Error{Kind: msgqueue.ReceiverDied})
	case <-time.After(2 * time.Second):
		t.Fatal("sender never unblocked after receiver teardown")
	}
}

// TestReplyShortcutOverridesWindowProcResult pins the Reply shortcut: a
// window procedure
// that calls Reply before returning wins over its own return value.
func TestReplyShortcutOverridesWindowProcResult(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	var receiver *msgqueue.Queue
	receiver = newTestQueue(t, sub, 2, msgqueue.WithWindowProc(&stubInvoker{
		fn: func(hwnd msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr {
			receiver.Reply(42)
			return 999
		},
	}))
	sender := newTestQueue(t, sub, 1)

	done := make(chan struct{})
	go func() {
		for !receiver.DispatchOneSent() {
			select {
			case <-done:
				return
			default:
			}
		}
	}()
	defer close(done)

	result, err := sender.Send(context.Background(), receiver, 0, 0x0111, 0, 0, msgqueue.SendOptions{Blocking: true})
	require.NoError(t, err)
	require.EqualValues(t, 42, result, "Reply's stashed result must win over the window procedure's own return value")
}

func TestLifecycleTeardownReleasesCursorAndForeground(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	q := newTestQueue(t, sub, 1)

	sub.SetForeground(q)
	q.SetCursor(msgqueue.Cursor{Handle: 7})

	torn := q.Release()
	require.True(t, torn)

	_, ok := sub.Foreground()
	require.False(t, ok, "teardown must clear the foreground slot if it pointed at the destroyed queue")

	_, ok = sub.Lookup(q.ID())
	require.False(t, ok, "teardown must unregister the queue from the subsystem")
}

// TestPostAPCInterruptsBlockingSend pins the user-APC branch: an APC queued
// at the sender runs during the wait, and the send comes back with a
// UserAPC error instead of a fabricated zero-result success.
func TestPostAPCInterruptsBlockingSend(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	receiver := newTestQueue(t, sub, 2, msgqueue.WithWindowProc(&stubInvoker{
		fn: func(hwnd msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr { return 0 },
	}))
	sender := newTestQueue(t, sub, 1)

	ran := false
	require.True(t, sender.PostAPC(func() { ran = true }))

	// The receiver never dispatches, so the queued APC is the only thing
	// that can end the wait.
	_, err := sender.Send(context.Background(), receiver, 0, 0x0111, 0, 0, msgqueue.SendOptions{Blocking: true})
	require.ErrorIs(t, err, &msgqueue.Error{Kind: msgqueue.UserAPC})
	require.True(t, ran, "the queued APC must be delivered before Send returns")
	require.Zero(t, receiver.PendingSentInbound(), "the interrupted record must be detached from the receiver's inbox")
}

// TestQueuedEventExtraReleasedOnTeardown pins the queued-event ownership
// marker: a posted record whose extraInfo the queue owns is delivered with
// it intact, and a queue torn down with such a record still pending drains
// it without tripping the pool's double-free guard.
func TestQueuedEventExtraReleasedOnTeardown(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	q := newTestQueue(t, sub, 1)

	ok := q.Post(q, 0, 0x0400, 0, 0, 0xD00D, msgqueue.QueuedEventOwnsExtra, msgqueue.QS_POSTMESSAGE, false)
	require.True(t, ok)
	msg, ok := q.Peek(msgqueue.PeekFilter{Remove: true})
	require.True(t, ok)
	require.EqualValues(t, 0xD00D, msg.ExtraInfo, "a delivered record hands its owned extraInfo to the caller")

	q.Post(q, 0, 0x0400, 0, 0, 0xBEEF, msgqueue.QueuedEventOwnsExtra, msgqueue.QS_POSTMESSAGE, false)
	require.True(t, q.Release(), "teardown must drain the flagged record and release its extra")
}

// TestPostAndSendAgainstTornDownQueueAreRejected pins the IN_DESTROY/
// IN_CLEANUP gate: once a queue has started teardown, Post drops the
// message instead of enqueuing it, and Send/SendAsync refuse with
// QueueDead instead of pushing onto a dispatcher nobody will ever drain.
func TestPostAndSendAgainstTornDownQueueAreRejected(t *testing.T) {
	sub := msgqueue.NewSubsystem(nil)
	target := newTestQueue(t, sub, 2, msgqueue.WithWindowProc(&stubInvoker{
		fn: func(hwnd msgqueue.WindowHandle, msg uint32, wParam, lParam uintptr) uintptr { return 0 },
	}))
	sender := newTestQueue(t, sub, 1)

	require.True(t, target.Release())

	ok := sender.Post(target, 0, 0x0400, 0, 0, 0, msgqueue.QueuedEventNone, msgqueue.QS_POSTMESSAGE, false)
	require.False(t, ok, "Post against a torn-down queue must be dropped")

	_, err := sender.Send(context.Background(), target, 0, 0x0111, 0, 0, msgqueue.SendOptions{Blocking: true})
	require.ErrorIs(t, err, &msgqueue.Error{Kind: msgqueue.QueueDead})

	err = sender.SendAsync(target, 0, 0x0111, 0, 0, msgqueue.SendOptions{}, nil, 0)
	require.ErrorIs(t, err, &msgqueue.Error{Kind: msgqueue.QueueDead})
}
