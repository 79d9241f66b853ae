package bakecache

import "sync"

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// nopLocker stands in for the mutex of an unsynchronized cache.
type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

func newLocker(synchronized bool) sync.Locker {
	if synchronized {
		return &sync.Mutex{}
	}
	return nopLocker{}
}
