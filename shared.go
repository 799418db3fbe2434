package forkstream

import "sync"

// sharedFork is the Shared Wrapper: a single mutex coordinating every clone
// handle's access to one underlying fork. All mutation happens under the
// write lock; wakers collected while the lock is held are fired only after
// it is released, so a Wake implementation is never invoked while this
// fork's lock is held - it must never call back into the fork it woke.
type sharedFork[T Cloneable[T]] struct {
	mu   sync.RWMutex
	fork *fork[T]
}

func newSharedFork[T Cloneable[T]](source Source[T], opts *forkOptions) *sharedFork[T] {
	return &sharedFork[T]{fork: newFork[T](source, opts)}
}

func (s *sharedFork[T]) register() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fork.register()
}

func (s *sharedFork[T]) unregister(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fork.unregister(id)
}

func (s *sharedFork[T]) pollClone(id int, w Waker) (Poll[T], error) {
	s.mu.Lock()
	p, wakers, err := s.fork.pollClone(id, w)
	s.mu.Unlock()

	for _, waker := range wakers {
		waker.Wake()
	}
	return p, err
}

func (s *sharedFork[T]) sizeHint(id int) (lower uint64, upper *uint64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.fork.registry.peek(id)
	if !ok {
		return 0, nil, &InvalidCloneIDError{CloneID: id}
	}
	baseLower, baseUpper := s.fork.source.SizeHint()
	n := uint64(s.fork.cachedCountFor(cs))
	if baseUpper != nil {
		u := *baseUpper + n
		return baseLower + n, &u, nil
	}
	return baseLower + n, nil, nil
}

func (s *sharedFork[T]) queuedItems(id int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.fork.registry.peek(id)
	if !ok {
		return 0, &InvalidCloneIDError{CloneID: id}
	}
	return s.fork.cachedCountFor(cs), nil
}

func (s *sharedFork[T]) isTerminated(id int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.fork.registry.peek(id)
	if !ok {
		return false, &InvalidCloneIDError{CloneID: id}
	}
	return s.fork.terminated && s.fork.cachedCountFor(cs) == 0, nil
}
