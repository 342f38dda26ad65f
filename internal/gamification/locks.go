package gamification

import (
	"sync"

	"github.com/google/uuid"
)

// userLocks serializes reward transactions per user. Two concurrent
// completions by the same user would otherwise both read the same
// profile score and one award would be lost; the store-level
// conditional completion update protects the task itself, this mutex
// protects the score read-modify-write.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[uuid.UUID]*userLock)}
}

// Lock acquires the lock for a user and returns the matching unlock
// function. Lock entries are reference counted so the map does not grow
// with every user ever seen.
func (l *userLocks) Lock(userID uuid.UUID) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
