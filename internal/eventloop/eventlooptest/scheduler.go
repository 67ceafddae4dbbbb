// Package eventlooptest provides a manually driven scheduler for tests.
package eventlooptest

import (
	"sort"
	"sync"
	"time"
)

type task struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// ManualScheduler fires tasks only when Advance moves its clock past their deadline.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*task
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &task{at: s.now + d, seq: s.seq, fn: f}
	s.seq++
	s.tasks = append(s.tasks, t)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()

		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// Advance moves the clock by d and runs every task that became due, in deadline order.
// Tasks scheduled by running tasks are run too if they fall inside the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDue(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.at
		next.fired = true
		s.mu.Unlock()

		next.fn()
	}
}

func (s *ManualScheduler) nextDue(target time.Duration) *task {
	pending := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.fired && !t.stopped {
			pending = append(pending, t)
		}
	}
	s.tasks = pending

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].at == pending[j].at {
			return pending[i].seq < pending[j].seq
		}
		return pending[i].at < pending[j].at
	})

	if len(pending) == 0 || pending[0].at > target {
		return nil
	}

	return pending[0]
}

// Pending returns the number of tasks not yet fired or stopped.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if !t.fired && !t.stopped {
			n++
		}
	}

	return n
}

func (s *ManualScheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.now
}
