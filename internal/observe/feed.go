// Package observe provides a minimal subscription feed used by the state holders
// to notify consumers about changes.
package observe

import "sync"

type Feed[T any] struct {
	mu     sync.RWMutex
	nextId int
	subs   map[int]func(T)
	order  []int
}

func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns a function that removes it.
func (f *Feed[T]) Subscribe(fn func(T)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextId
	f.nextId++
	f.subs[id] = fn
	f.order = append(f.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()

			delete(f.subs, id)
			for i, subId := range f.order {
				if subId == id {
					f.order = append(f.order[:i], f.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish calls every subscriber in subscription order.
func (f *Feed[T]) Publish(v T) {
	f.mu.RLock()
	fns := make([]func(T), 0, len(f.order))
	for _, id := range f.order {
		fns = append(fns, f.subs[id])
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (f *Feed[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.order)
}
