package services

import "sync"

// lawyerLocks is a keyed mutex: one lock per lawyer id, created on demand
// and dropped when its last holder or waiter releases it. The zero value is
// ready to use.
type lawyerLocks struct {
	mu sync.Mutex
	m  map[string]*lawyerLock
}

type lawyerLock struct {
	mu   sync.Mutex
	refs int
}

// Lock blocks until the lock for id is held and returns its release func.
func (l *lawyerLocks) Lock(id string) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*lawyerLock)
	}
	e, ok := l.m[id]
	if !ok {
		e = &lawyerLock{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

// size reports how many lawyer locks are live.
func (l *lawyerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
