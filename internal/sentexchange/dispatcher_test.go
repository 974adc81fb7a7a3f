package sentexchange_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kernelbin/msgqueue/internal/sentexchange"
	"github.com/kernelbin/msgqueue/internal/wake"
)

type stubTarget struct {
	invoke func(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr
}

func (s *stubTarget) InvokeWindowProc(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
	if s.invoke != nil {
		return s.invoke(hwnd, msg, wParam, lParam)
	}
	return 0
}
func (s *stubTarget) CallHook(hhook uintptr, code int, wParam, lParam uintptr) uintptr { return 0 }
func (s *stubTarget) CallInjectedModule(hwnd uintptr, msg uint32, wParam uintptr) uintptr {
	return 0
}

func newPair(t *testing.T) (sub *sentexchange.Subsystem, sender, receiver *sentexchange.Dispatcher) {
	sub = sentexchange.NewSubsystem()
	sender = sub.NewDispatcher(wake.New(nil), &stubTarget{})
	receiver = sub.NewDispatcher(wake.New(nil), &stubTarget{
		invoke: func(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
			return wParam + lParam
		},
	})
	return sub, sender, receiver
}

// TestBlockingSendRoundTrip pins the simple half of a blocking send: it
// waits for the receiver's dispatch loop to run the window proc and deliver
// the result back through the completion channel.
func TestBlockingSendRoundTrip(t *testing.T) {
	_, sender, receiver := newPair(t)

	rec := &sentexchange.Record{Hwnd: 1, Msg: 42, WParam: 3, LParam: 4, Receiver: receiver}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for !receiver.DispatchOne() {
			time.Sleep(time.Millisecond)
		}
	}()

	status, result := sender.Send(context.Background(), rec, 0, true)
	<-done

	require.Equal(t, sentexchange.StatusSuccess, status)
	require.EqualValues(t, 7, result)
}

// TestNonBlockingSendPumpsOwnInbox exercises the cross-send deadlock
// avoidance: A sends to B (non-blocking wait variant) while B concurrently
// sends to A; neither thread can finish its DispatchOne loop without first
// draining what was queued back to it mid-wait.
func TestNonBlockingSendPumpsOwnInbox(t *testing.T) {
	sub := sentexchange.NewSubsystem()
	var aDispatcher, bDispatcher *sentexchange.Dispatcher
	aDispatcher = sub.NewDispatcher(wake.New(nil), &stubTarget{
		invoke: func(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr { return 100 },
	})
	bDispatcher = sub.NewDispatcher(wake.New(nil), &stubTarget{
		invoke: func(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr { return 200 },
	})

	recAtoB := &sentexchange.Record{Hwnd: 1, Msg: 1, Receiver: bDispatcher}
	recBtoA := &sentexchange.Record{Hwnd: 2, Msg: 2, Receiver: aDispatcher}

	resultsA := make(chan uintptr, 1)
	resultsB := make(chan uintptr, 1)

	go func() {
		_, r := aDispatcher.Send(context.Background(), recAtoB, time.Second, false)
		resultsA <- r
	}()
	go func() {
		_, r := bDispatcher.Send(context.Background(), recBtoA, time.Second, false)
		resultsB <- r
	}()

	select {
	case r := <-resultsA:
		require.EqualValues(t, 200, r)
	case <-time.After(2 * time.Second):
		t.Fatal("A's send never completed — own-inbox pump did not unblock the cross-send")
	}
	select {
	case r := <-resultsB:
		require.EqualValues(t, 100, r)
	case <-time.After(2 * time.Second):
		t.Fatal("B's send never completed — own-inbox pump did not unblock the cross-send")
	}
}

// TestTimeoutWhileStillInInboxFreesRecord covers the first cancellation-matrix
// branch: if the timeout fires before the receiver ever dispatches the
// record, the sender must be able to free it outright.
func TestTimeoutWhileStillInInboxFreesRecord(t *testing.T) {
	_, sender, receiver := newPair(t)
	rec := &sentexchange.Record{Hwnd: 1, Msg: 1, Receiver: receiver}

	status, _ := sender.Send(context.Background(), rec, 10*time.Millisecond, true)

	require.Equal(t, sentexchange.StatusTimeout, status)
	require.Equal(t, sentexchange.StateFreed, rec.State())
	require.Equal(t, 0, receiver.PendingInbound())
}

// TestReceiverDeathWakesBlockedSender covers the receiver-teardown
// cancellation branch.
func TestReceiverDeathWakesBlockedSender(t *testing.T) {
	_, sender, receiver := newPair(t)
	rec := &sentexchange.Record{Hwnd: 1, Msg: 1, Receiver: receiver}

	go func() {
		time.Sleep(10 * time.Millisecond)
		receiver.Teardown()
	}()

	status, _ := sender.Send(context.Background(), rec, 0, true)
	require.Equal(t, sentexchange.StatusReceiverDied, status)
}
