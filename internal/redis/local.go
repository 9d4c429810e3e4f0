package redisclient

import (
	"context"
	"sync"
)

type localKeyLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker is the single-process stand-in used when no Redis address is
// configured. Same contract: a held key fails fast with ErrLockNotAcquired.
func NewLocalLocker() Locker {
	return &localKeyLocker{held: make(map[string]struct{})}
}

func (l *localKeyLocker) WithKeyLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, ok := l.held[key]; ok {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
