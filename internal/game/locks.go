package game

import "sync"

// roomLocks hands out one mutex per room id so every initializer run and zone
// operation on a room executes serially in this process. Locks are created on
// first use and kept for the life of the manager; rooms are few and small.
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
