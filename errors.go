package msgqueue

import "fmt"

// Kind enumerates the error categories a call against a queue can fail with.
type Kind int

const (
	OutOfMemory Kind = iota
	QueueDead
	PolicyReject
	Timeout
	ReceiverDied
	// UserAPC means a user-mode APC queued at the sender ran during the
	// wait: the APC has already been delivered and the send was abandoned
	// without a result, so the caller may retry it.
	UserAPC
	// SenderDied never surfaces as an error to any caller — a receiver that
	// finishes dispatching a record whose sender has since torn down simply
	// has nowhere to deliver the result. Listed here only so
	// errors.Is-style comparisons have a name for it in logs.
	SenderDied
	InvalidParameter
)

func (k Kind) String() string {
	switch k {
	case OutOfMemory:
		return "out of memory"
	case QueueDead:
		return "queue dead"
	case PolicyReject:
		return "policy reject"
	case Timeout:
		return "timeout"
	case ReceiverDied:
		return "receiver died"
	case UserAPC:
		return "user apc"
	case SenderDied:
		return "sender died"
	case InvalidParameter:
		return "invalid parameter"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with the operation-specific detail: a small
// sentinel-shaped error plus errors.Is-compatible comparison via Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("msgqueue: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("msgqueue: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, letting callers
// write errors.Is(err, &Error{Kind: msgqueue.Timeout}).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
