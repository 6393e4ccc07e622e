package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "storefront/internal/errors"
	"storefront/internal/metrics"
)

// DefaultLockTimeout bounds how long an operation waits for a collection lock.
const DefaultLockTimeout = 5 * time.Second

// lockWeight is the full weight of a collection semaphore. Readers take 1,
// writers take all of it, so writers are exclusive and readers share.
const lockWeight = 1 << 20

// LockSet hands out one reader/writer lock per collection name. A single
// LockSet must be shared by every Collection in the process that touches the
// same files.
type LockSet struct {
	mu      sync.Mutex
	sems    map[string]*semaphore.Weighted
	timeout time.Duration
}

// NewLockSet creates a lock set whose acquisitions wait at most timeout.
func NewLockSet(timeout time.Duration) *LockSet {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &LockSet{
		sems:    make(map[string]*semaphore.Weighted),
		timeout: timeout,
	}
}

func (l *LockSet) sem(name string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sems[name]
	if !ok {
		s = semaphore.NewWeighted(lockWeight)
		l.sems[name] = s
	}
	return s
}

// RLock acquires a shared lock on the named collection.
func (l *LockSet) RLock(ctx context.Context, name string) (release func(), err error) {
	return l.acquire(ctx, name, 1, "read")
}

// Lock acquires an exclusive lock on the named collection.
func (l *LockSet) Lock(ctx context.Context, name string) (release func(), err error) {
	return l.acquire(ctx, name, lockWeight, "write")
}

func (l *LockSet) acquire(ctx context.Context, name string, weight int64, mode string) (func(), error) {
	s := l.sem(name)

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := s.Acquire(waitCtx, weight); err != nil {
		// The caller gave up; that is not contention.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordLockTimeout(name, mode)
			return nil, apperrors.Busy(fmt.Sprintf("%s collection is busy", name), err)
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.Release(weight) })
	}, nil
}
