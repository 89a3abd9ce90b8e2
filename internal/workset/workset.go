// Package workset owns the in-memory working set of records. State changes
// only through Dispatch, which installs a new State value per action.
package workset

import (
	"sync"

	"qareview/store"
)

type State struct {
	Records []store.Record
	Loading bool
	Error   string
}

// Action is one of StartLoad, LoadSucceeded, LoadFailed or ReplaceAll.
type Action interface {
	action()
}

type StartLoad struct{}

type LoadSucceeded struct {
	Records []store.Record
}

type LoadFailed struct {
	Err error
}

type ReplaceAll struct {
	Records []store.Record
}

func (StartLoad) action()     {}
func (LoadSucceeded) action() {}
func (LoadFailed) action()    {}
func (ReplaceAll) action()    {}

// Reduce returns the state that follows s after a.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case StartLoad:
		s.Loading = true
	case LoadSucceeded:
		s.Loading = false
		s.Error = ""
		s.Records = a.Records
	case LoadFailed:
		s.Loading = false
		if a.Err != nil {
			s.Error = a.Err.Error()
		}
	case ReplaceAll:
		s.Records = a.Records
	}
	return s
}

// Store serializes dispatches and notifies subscribers with each new state.
// Records slices handed out by State must be treated as read-only.
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers []func(State)
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Records() []store.Record {
	return s.State().Records
}

// Dispatch applies a and returns the resulting state. Subscribers run after
// the lock is released, in subscription order.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	subs := append([]func(State){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Update computes a new record slice from the current one and installs it as
// a ReplaceAll, holding the lock across fn so concurrent updates do not lose
// writes. fn must not call back into the Store.
func (s *Store) Update(fn func([]store.Record) ([]store.Record, error)) (State, error) {
	s.mu.Lock()
	records, err := fn(s.state.Records)
	if err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	s.state = Reduce(s.state, ReplaceAll{Records: records})
	next := s.state
	subs := append([]func(State){}, s.subscribers...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, nil
}

func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}
