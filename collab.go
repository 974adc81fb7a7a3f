package msgqueue

import (
	"github.com/kernelbin/msgqueue/internal/cooker"
	"github.com/kernelbin/msgqueue/internal/cursor"
	"github.com/kernelbin/msgqueue/internal/sentexchange"
)

// WindowTree is the hit-testing and ancestry collaborator a caller must
// implement.
type WindowTree = cooker.WindowTree

// CursorRenderer actually moves or reshapes the on-screen pointer.
type CursorRenderer = cursor.Renderer

// Cursor is the shape swapped by SetCursor, re-exported from internal/cursor.
type Cursor = cursor.Cursor

// HookChain is the pre-installed filter chain (WH_MOUSE, WH_KEYBOARD,
// WH_CBT, journal).
type HookChain = cooker.HookChain

// Timers is the hover-tracking collaborator.
type Timers = cooker.Timers

// IME is the input-method collaborator.
type IME = cooker.IME

// WindowProcInvoker is implemented by the caller's window-procedure
// dispatch so SentExchange can deliver NORMAL-class sent messages.
type WindowProcInvoker interface {
	InvokeWindowProc(hwnd WindowHandle, msg uint32, wParam, lParam uintptr) uintptr
}

// sendTarget adapts a WindowProcInvoker plus the hook/inject-module calls a
// caller may optionally supply into sentexchange.Target.
type sendTarget struct {
	invoker      WindowProcInvoker
	callHook     func(hhook uintptr, code int, wParam, lParam uintptr) uintptr
	callInjected func(hwnd WindowHandle, msg uint32, wParam uintptr) uintptr
}

func (t *sendTarget) InvokeWindowProc(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
	if t.invoker == nil {
		return 0
	}
	return t.invoker.InvokeWindowProc(WindowHandle(hwnd), msg, wParam, lParam)
}
func (t *sendTarget) CallHook(hhook uintptr, code int, wParam, lParam uintptr) uintptr {
	if t.callHook == nil {
		return 0
	}
	return t.callHook(hhook, code, wParam, lParam)
}
func (t *sendTarget) CallInjectedModule(hwnd uintptr, msg uint32, wParam uintptr) uintptr {
	if t.callInjected == nil {
		return 0
	}
	return t.callInjected(WindowHandle(hwnd), msg, wParam)
}

var _ sentexchange.Target = (*sendTarget)(nil)

// ThreadInfo is the per-thread scratch collaborator: a
// monotonic tick source, also satisfying internal/hwqueue.Clock directly.
// ProcessID identifies the owning process — the value Send's pre-send
// policy gate compares across sender and receiver to decide whether
// a send is cross-process.
type ThreadInfo interface {
	TickCount() uint32
	ProcessID() uintptr
}

// PasswordFieldQuery is consulted by the pre-send policy gate when a
// cross-process GET-LINE/SET-PASSWORD/GET-TEXT send targets hwnd: it
// reports whether that window is an edit control flagged with the password
// style. Wiring none (the zero value of the WithPasswordFieldQuery option)
// means that branch of the gate never rejects.
type PasswordFieldQuery interface {
	HasPasswordStyle(hwnd WindowHandle) bool
}
