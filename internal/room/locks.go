package room

import "sync"

// roomLocks serializes membership mutations per room so capacity checks and
// inserts cannot interleave for the same lobby.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

func (r *roomLocks) get(roomID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[roomID] = lock
	}
	return lock
}
