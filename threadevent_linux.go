//go:build linux

package msgqueue

import "golang.org/x/sys/unix"

// newWakeEvent backs the thread's wake event with a Linux eventfd so a
// diagnostic tool outside the Go runtime (an external select(2)/epoll
// bridge) can observe the same wake the application loop does. Falls back
// to the plain channel event if eventfd creation fails.
func newWakeEvent() *wakeEvent {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return newChannelWakeEvent()
	}
	w := &wakeEvent{ch: make(chan struct{}, 1), fd: fd, hasFd: true}
	go w.pump()
	return w
}

func (w *wakeEvent) pump() {
	buf := make([]byte, 8)
	for {
		n, err := unix.Read(w.fd, buf)
		if err != nil || n <= 0 {
			return
		}
		select {
		case w.ch <- struct{}{}:
		default:
		}
	}
}

func (w *wakeEvent) signalPlatform() {
	if !w.hasFd {
		return
	}
	one := [8]byte{0, 0, 0, 0, 0, 0, 0, 1}
	_, _ = unix.Write(w.fd, one[:])
}

func (w *wakeEvent) closePlatform() {
	if w.hasFd {
		_ = unix.Close(w.fd)
	}
}
