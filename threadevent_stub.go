//go:build !linux

package msgqueue

// newWakeEvent falls back to a plain buffered channel on every platform
// without a Linux eventfd.
func newWakeEvent() *wakeEvent { return newChannelWakeEvent() }

func (w *wakeEvent) signalPlatform() {}
func (w *wakeEvent) closePlatform()  {}
