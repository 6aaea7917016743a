// Package store is the single owner of client state. All changes flow through
// Reduce; Store only serializes dispatches and publishes the result.
package store

import (
	"sync"
	"sync/atomic"
)

// DispatchFunc is handed to components that need to emit actions without
// access to the Store itself.
type DispatchFunc func(Action)

type Listener func(*State)

type Store struct {
	mu     sync.Mutex
	notify sync.Mutex // held while listeners run; keeps notifications in dispatch order
	state  atomic.Pointer[State]

	nextID    int
	listeners map[int]Listener
}

func New(initial *State) *Store {
	if initial == nil {
		initial = Initial()
	}
	s := &Store{listeners: make(map[int]Listener)}
	s.state.Store(initial)
	return s
}

// State returns the current snapshot. Callers must not modify it.
func (s *Store) State() *State {
	return s.state.Load()
}

// Dispatch reduces a into the current state and notifies listeners when the
// state pointer changed. Listeners run outside the state lock, so they may
// unsubscribe, but they must not dispatch themselves.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	prev := s.state.Load()
	next := Reduce(prev, a)
	if next == prev {
		s.mu.Unlock()
		return
	}
	s.state.Store(next)

	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.notify.Lock()
	s.mu.Unlock()
	defer s.notify.Unlock()

	for _, l := range ls {
		l(next)
	}
}

func (s *Store) Bind() DispatchFunc {
	return s.Dispatch
}

// Subscribe registers l for state changes and returns its removal func.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
