package msgqueue

// wakeEvent is the thread's idle/wake event: WaitForNewMessages blocks on it, and
// Queue.signalWake signals it. newWakeEvent is platform-specific
// (threadevent_linux.go vs threadevent_stub.go) — on Linux it is additionally
// backed by an eventfd so external tooling can observe it via
// select(2)/epoll; elsewhere it is a plain buffered channel.
type wakeEvent struct {
	ch    chan struct{}
	fd    int
	hasFd bool
}

func newChannelWakeEvent() *wakeEvent {
	return &wakeEvent{ch: make(chan struct{}, 1)}
}

func (w *wakeEvent) signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
	w.signalPlatform()
}

func (w *wakeEvent) wait() <-chan struct{} { return w.ch }

func (w *wakeEvent) close() { w.closePlatform() }
