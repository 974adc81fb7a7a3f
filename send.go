package msgqueue

import (
	"context"
	"time"

	"github.com/kernelbin/msgqueue/internal/sentexchange"
)

// SendOptions configures a synchronous or asynchronous sent message.
type SendOptions struct {
	Blocking bool          // false pumps this queue's own inbox while waiting
	Timeout  time.Duration // 0 disables the timeout branch of the wait set
	Class    HookClass     // defaults to HookNormal
	HHook    uintptr       // consulted only when Class == HookIsHook
	HookCode int

	// HasPackedLParam marks lParam as carrying a marshalled payload whose
	// lifetime is tied to the record rather than the caller's frame.
	HasPackedLParam bool
}

// Win32 message codes the pre-send policy gate inspects. Kept local
// rather than pulled from internal/cooker since they're not hardware codes.
const (
	wmCreate          = 0x0001
	wmGetText         = 0x000D
	wmNotify          = 0x004E
	wmNCCreate        = 0x0081
	emGetLine         = 0x00C4
	emSetPasswordChar = 0x00CC
)

// policyReject implements the three NORMAL-hook-class pre-send gates:
// a send matching any of them is refused outright, never queued.
func policyReject(sender, target *Queue, hwnd WindowHandle, msg uint32, class HookClass) bool {
	if class != HookNormal {
		return false
	}
	if (msg == wmCreate || msg == wmNCCreate) && target.id != sender.id {
		return true
	}
	if sender.processID() != target.processID() {
		switch msg {
		case emGetLine, emSetPasswordChar, wmGetText:
			return target.hasPasswordStyle(hwnd)
		case wmNotify:
			return true
		}
	}
	return false
}

// Send performs a synchronous sent message from q to target and blocks (or
// pumps q's own inbox, per opts.Blocking) until the receiver dispatches it,
// the receiver dies, the timeout elapses, or ctx is cancelled.
func (q *Queue) Send(ctx context.Context, target *Queue, hwnd WindowHandle, msg uint32, wParam, lParam uintptr, opts SendOptions) (uintptr, error) {
	if target.isDead() {
		return 0, newError(QueueDead, "Send", nil)
	}
	if policyReject(q, target, hwnd, msg, opts.Class) {
		return 0, newError(PolicyReject, "Send", nil)
	}

	rec := sentexchange.NewRecord()
	rec.Hwnd = uintptr(hwnd)
	rec.Msg = msg
	rec.WParam = wParam
	rec.LParam = lParam
	rec.HookClass = opts.Class
	rec.HHook = opts.HHook
	rec.HookCode = opts.HookCode
	rec.HasPackedLParam = opts.HasPackedLParam
	rec.Sender = q.dispatcher
	rec.Receiver = target.dispatcher

	status, result := q.dispatcher.Send(ctx, rec, opts.Timeout, opts.Blocking)
	switch status {
	case sentexchange.StatusSuccess:
		return result, nil
	case sentexchange.StatusUserAPC:
		// The APC already ran and the record was abandoned without a
		// result; surfacing the interruption lets the caller retry the
		// send rather than trust a fabricated zero.
		return 0, newError(UserAPC, "Send", nil)
	case sentexchange.StatusTimeout:
		return 0, newError(Timeout, "Send", nil)
	case sentexchange.StatusReceiverDied:
		return 0, newError(ReceiverDied, "Send", nil)
	default:
		return 0, newError(QueueDead, "Send", nil)
	}
}

// PostAPC queues fn for delivery on q's thread the next time it waits
// inside Send. The wait is abandoned once fn has run: Send detaches its
// record and returns a UserAPC error, delivering the interruption before
// control goes back to the caller. Returns false if the pending-APC queue
// is full.
func (q *Queue) PostAPC(fn func()) bool {
	return q.dispatcher.PostAPC(fn)
}

// SendAsync enqueues msg on target's inbox without waiting. If cb is
// non-nil, it is invoked on q's own thread (via q's dispatch loop) once
// target has produced a result — the callback-style send variant.
func (q *Queue) SendAsync(target *Queue, hwnd WindowHandle, msg uint32, wParam, lParam uintptr, opts SendOptions, cb sentexchange.CompletionCallback, cbCtx uintptr) error {
	if target.isDead() {
		return newError(QueueDead, "SendAsync", nil)
	}
	if policyReject(q, target, hwnd, msg, opts.Class) {
		return newError(PolicyReject, "SendAsync", nil)
	}

	rec := sentexchange.NewRecord()
	rec.Hwnd = uintptr(hwnd)
	rec.Msg = msg
	rec.WParam = wParam
	rec.LParam = lParam
	rec.HookClass = opts.Class
	rec.HHook = opts.HHook
	rec.HookCode = opts.HookCode
	rec.HasPackedLParam = opts.HasPackedLParam
	rec.Sender = q.dispatcher
	rec.Receiver = target.dispatcher
	q.dispatcher.SendAsync(rec, cb, cbCtx)
	return nil
}

// DispatchOneSent delivers the oldest record in q's sent-message inbox,
// returning false if the inbox was empty. Callers drive this from their own
// message loop.
func (q *Queue) DispatchOneSent() bool {
	return q.dispatcher.DispatchOne()
}

// PendingSentInbound reports how many sent messages are still queued for
// this thread to dispatch.
func (q *Queue) PendingSentInbound() int {
	return q.dispatcher.PendingInbound()
}

// InSendMessage reports whether q is currently somewhere inside
// DispatchOneSent — set for the duration of a window procedure invocation
// triggered by a sent message, including nested recursive dispatch.
func (q *Queue) InSendMessage() bool {
	return q.dispatcher.InSendMessage()
}
