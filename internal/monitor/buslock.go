package monitor

import "sync"

// BusLocks serialises exchanges per I2C bus. DDC/CI request and reply frames
// on one bus must never interleave, whichever driver is talking.
//
// A single BusLocks should be shared by every driver that touches the buses.
// The zero value is ready to use.
type BusLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock acquires the lock for bus and returns its release function.
func (b *BusLocks) Lock(bus string) func() {
	b.mu.Lock()
	if b.locks == nil {
		b.locks = make(map[string]*sync.Mutex)
	}
	l, ok := b.locks[bus]
	if !ok {
		l = &sync.Mutex{}
		b.locks[bus] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}
