package eventloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsTasksSerially(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(16)
	go l.Run(ctx)

	var running, maxRunning int32
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		last := i == 9
		require.NoError(t, l.Post(func() {
			n := atomic.AddInt32(&running, 1)
			if n > atomic.LoadInt32(&maxRunning) {
				atomic.StoreInt32(&maxRunning, n)
			}
			atomic.AddInt32(&running, -1)
			if last {
				close(done)
			}
		}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tasks")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestLoopAfterFuncPostsToLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(1)
	go l.Run(ctx)

	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer task did not run")
	}
}

func TestLoopPostAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(1)

	stopped := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.ErrorIs(t, l.Post(func() {}), ErrLoopStopped)
}

func TestInlineRunsImmediately(t *testing.T) {
	ran := false
	require.NoError(t, Inline{}.Post(func() { ran = true }))
	assert.True(t, ran)
}
