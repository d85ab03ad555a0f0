package store

import "sync"

// Store holds a value and notifies subscribers synchronously on every change.
// Values are replaced wholesale; callers must not mutate what Get returns.
// Notifications are delivered one change at a time, in the order the changes
// were applied. Subscribers may call Get but must not write to the same store.
type Store[T any] struct {
	// notifyMu is held from the change through its delivery
	notifyMu sync.Mutex
	mu       sync.RWMutex
	value    T
	nextID   int
	subs     map[int]func(T)
}

// New creates a store with an initial value.
func New[T any](initial T) *Store[T] {
	return &Store[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies subscribers.
func (s *Store[T]) Set(v T) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.value = v
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Update derives the next value from the current one under the write lock,
// then notifies subscribers with the result.
func (s *Store[T]) Update(fn func(T) T) T {
	next, _ := s.UpdateIf(func(cur T) (T, bool) { return fn(cur), true })
	return next
}

// UpdateIf is Update for callers that only sometimes change the value. When fn
// reports false the value is kept and no one is notified.
func (s *Store[T]) UpdateIf(fn func(T) (T, bool)) (T, bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, changed := fn(s.value)
	if !changed {
		cur := s.value
		s.mu.Unlock()
		return cur, false
	}
	s.value = next
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next, true
}

// Subscribe registers fn for future changes. The returned func removes it.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// subscribers are called outside the lock so they may read the store
func (s *Store[T]) snapshotSubs() []func(T) {
	out := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
