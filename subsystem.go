package msgqueue

import (
	"sync"

	"github.com/kernelbin/msgqueue/internal/cursor"
	"github.com/kernelbin/msgqueue/internal/sentexchange"
)

// Subsystem is the process-scoped singleton that owns the global "user
// lock" and every cross-queue shared state: the sent-message
// exchange's shared lock and the cursor-ownership singleton. Never reach for
// ambient globals from component code — every Queue holds
// a reference to its Subsystem instead.
type Subsystem struct {
	mu sync.RWMutex

	sx     *sentexchange.Subsystem
	cursor *cursor.Ownership[*Queue]

	queues map[ThreadID]*Queue

	foreground *Queue // the queue whose window currently owns system focus
}

// NewSubsystem returns a Subsystem with no queues yet. renderer may be nil
// if the caller has no on-screen cursor to drive (e.g. a headless test).
func NewSubsystem(renderer CursorRenderer) *Subsystem {
	return &Subsystem{
		sx:     sentexchange.NewSubsystem(),
		cursor: cursor.New[*Queue](renderer),
		queues: make(map[ThreadID]*Queue),
	}
}

// Lookup returns the queue bound to id, if any.
func (s *Subsystem) Lookup(id ThreadID) (*Queue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queues[id]
	return q, ok
}

func (s *Subsystem) register(q *Queue) {
	s.mu.Lock()
	s.queues[q.id] = q
	s.mu.Unlock()
}

func (s *Subsystem) unregister(id ThreadID) {
	s.mu.Lock()
	delete(s.queues, id)
	s.mu.Unlock()
}

// SetForeground records q as the queue whose window currently owns system
// focus. Passing nil clears it.
func (s *Subsystem) SetForeground(q *Queue) {
	s.mu.Lock()
	s.foreground = q
	s.mu.Unlock()
}

// Foreground returns the current foreground queue, if any.
func (s *Subsystem) Foreground() (*Queue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.foreground, s.foreground != nil
}
