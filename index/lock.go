package index

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// maxReaders bounds concurrent readers; a writer takes all of them at once.
const maxReaders = 1 << 30

// rwLock is a read/write lock whose read side can give up after a deadline.
// Waiters are served in FIFO order, so a waiting writer holds back new readers.
type rwLock struct {
	sem *semaphore.Weighted
}

func newRWLock() *rwLock {
	return &rwLock{sem: semaphore.NewWeighted(maxReaders)}
}

// Lock waits indefinitely for exclusive access.
func (l *rwLock) Lock() {
	_ = l.sem.Acquire(context.Background(), maxReaders)
}

func (l *rwLock) Unlock() {
	l.sem.Release(maxReaders)
}

// RLock waits for shared access until ctx is done.
func (l *rwLock) RLock(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *rwLock) RUnlock() {
	l.sem.Release(1)
}
