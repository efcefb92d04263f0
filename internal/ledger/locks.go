package ledger

import (
	"context"
	"sync"
)

type ownerLock struct {
	ch   chan struct{}
	refs int
}

// ownerLocks hands out one mutex per owner and drops it when nobody holds or waits on it.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

// acquire blocks until the owner's lock is held or ctx is done.
func (l *ownerLocks) acquire(ctx context.Context, owner string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*ownerLock{}
	}
	lk, ok := l.locks[owner]
	if !ok {
		lk = &ownerLock{ch: make(chan struct{}, 1)}
		l.locks[owner] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(owner, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.release(owner, lk)
		})
	}, nil
}

func (l *ownerLocks) release(owner string, lk *ownerLock) {
	l.mu.Lock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, owner)
	}
	l.mu.Unlock()
}
