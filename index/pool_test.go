package index

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Pool_RunsAllJobs(t *testing.T) {
	p := newPool(4, 8)
	var done atomic.Int64

	for i := 0; i < 100; i++ {
		require.NoError(t, p.Submit(func() { done.Add(1) }))
	}
	p.Close()
	p.Wait()

	assert.Equal(t, int64(100), done.Load())
	assert.Equal(t, 0, p.Pending())
}

func Test_Pool_PendingCountsQueuedJobs(t *testing.T) {
	p := newPool(1, 4)
	release := make(chan struct{})

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Submit(func() { <-release }))
	}
	assert.Equal(t, 3, p.Pending())

	close(release)
	require.Eventually(t, func() bool { return p.Pending() == 0 }, time.Second, 5*time.Millisecond)
	p.Close()
	p.Wait()
}

func Test_Pool_SubmitAfterClose(t *testing.T) {
	p := newPool(1, 1)
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Submit(func() {}), errPoolClosed)
	p.Wait()
}

// fillPool occupies the single worker and the single queue slot of p.
func fillPool(t *testing.T, p *pool, release chan struct{}) {
	t.Helper()
	started := make(chan struct{})
	require.NoError(t, p.Submit(func() { close(started); <-release }))
	<-started
	require.NoError(t, p.Submit(func() { <-release }))
}

func Test_Pool_SubmitBlocksWhileQueueFull(t *testing.T) {
	p := newPool(1, 1)
	release := make(chan struct{})
	fillPool(t, p, release)

	var ran atomic.Bool
	submitted := make(chan error, 1)
	go func() { submitted <- p.Submit(func() { ran.Store(true) }) }()

	select {
	case err := <-submitted:
		t.Fatalf("submit returned while the queue was full: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-submitted:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("submit still blocked after the queue drained")
	}
	require.Eventually(t, func() bool { return ran.Load() }, time.Second, 5*time.Millisecond)

	p.Close()
	p.Wait()
}

func Test_Pool_CloseWhileSubmitBlocked(t *testing.T) {
	p := newPool(1, 1)
	release := make(chan struct{})
	fillPool(t, p, release)

	submitted := make(chan error, 1)
	go func() { submitted <- p.Submit(func() {}) }()
	// The pending counter moves before the blocking send.
	require.Eventually(t, func() bool { return p.Pending() == 3 }, time.Second, 5*time.Millisecond)

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("close returned while a submit was still sending")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-submitted:
		assert.NoError(t, err, "a submit that was already waiting is accepted")
	case <-time.After(time.Second):
		t.Fatal("blocked submit never returned")
	}
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close deadlocked")
	}

	assert.ErrorIs(t, p.Submit(func() {}), errPoolClosed)
	p.Wait()
	assert.Equal(t, 0, p.Pending())
}
