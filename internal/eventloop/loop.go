// Package eventloop runs every state mutation of a peer on one goroutine.
// Network callbacks and timers post closures to the loop instead of touching
// state directly.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrLoopStopped = errors.New("event loop stopped")

// Executor runs posted tasks one at a time.
type Executor interface {
	Post(task func()) error
}

// Scheduler runs f after d. The returned stop function cancels the task if it
// has not started yet and reports whether it did.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type Loop struct {
	inbox chan func()
	done  chan struct{}
	once  sync.Once
}

func New(size int) *Loop {
	return &Loop{
		inbox: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

func (l *Loop) Post(task func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.inbox <- task:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// AfterFunc posts f to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, f func()) func() bool {
	t := time.AfterFunc(d, func() {
		_ = l.Post(f)
	})

	return t.Stop
}

// Run executes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task := <-l.inbox:
			task()
		}
	}
}

// Inline executes tasks on the caller's goroutine.
type Inline struct{}

func (Inline) Post(task func()) error {
	task()
	return nil
}
