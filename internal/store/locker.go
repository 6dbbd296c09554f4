package store

import (
	"strings"
	"sync"
)

// userLock serialises writes for one user. Locks are reference counted and
// dropped when no writer holds or waits on them.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out per-user write locks.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

// NewLocker creates an empty locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*userLock)}
}

// Lock acquires the write lock for userID and returns the release func.
func (l *Locker) Lock(userID string) func() {
	if strings.TrimSpace(userID) == "" {
		return func() {}
	}

	l.mu.Lock()
	lock := l.locks[userID]
	if lock == nil {
		lock = &userLock{}
		l.locks[userID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs <= 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
