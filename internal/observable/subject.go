package observable

import "sync"

type registry[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(T)
	order  []uint64
}

func (r *registry[T]) add(fn func(T)) uint64 {
	if r.subs == nil {
		r.subs = make(map[uint64]func(T))
	}
	r.nextID++
	id := r.nextID
	r.subs[id] = fn
	r.order = append(r.order, id)
	return id
}

func (r *registry[T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return
	}
	delete(r.subs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// snapshotLocked returns subscribers in registration order. r.mu must be held.
func (r *registry[T]) snapshotLocked() []func(T) {
	out := make([]func(T), 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.subs[id])
	}
	return out
}

// Subject is an observable value with last-value replay.
type Subject[T any] struct {
	emit  sync.Mutex
	reg   registry[T]
	value T
}

// NewSubject returns a Subject holding initial.
func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{value: initial}
}

// Get returns the current value.
func (s *Subject[T]) Get() T {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	return s.value
}

// Set stores v and notifies every subscriber before returning.
func (s *Subject[T]) Set(v T) {
	s.emit.Lock()
	defer s.emit.Unlock()

	s.reg.mu.Lock()
	s.value = v
	subs := s.reg.snapshotLocked()
	s.reg.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn and immediately calls it with the current value.
// The returned function unsubscribes and is safe to call more than once.
func (s *Subject[T]) Subscribe(fn func(T)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.emit.Lock()
	defer s.emit.Unlock()

	s.reg.mu.Lock()
	id := s.reg.add(fn)
	current := s.value
	s.reg.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() { once.Do(func() { s.reg.remove(id) }) }
}

// Stream is a fan-out event channel without replay.
type Stream[T any] struct {
	emit sync.Mutex
	reg  registry[T]
}

// NewStream returns an empty Stream.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{}
}

// Publish delivers v to every current subscriber, in registration order.
func (s *Stream[T]) Publish(v T) {
	s.emit.Lock()
	defer s.emit.Unlock()

	s.reg.mu.Lock()
	subs := s.reg.snapshotLocked()
	s.reg.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Subscribe registers fn for items published after this call.
func (s *Stream[T]) Subscribe(fn func(T)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.reg.mu.Lock()
	id := s.reg.add(fn)
	s.reg.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { s.reg.remove(id) }) }
}

// Len reports the number of subscribers.
func (s *Stream[T]) Len() int {
	s.reg.mu.Lock()
	defer s.reg.mu.Unlock()
	return len(s.reg.order)
}
