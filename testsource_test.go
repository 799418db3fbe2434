package forkstream

// cloneInt is the [Cloneable] int used throughout the test suite: plain
// int already has value semantics, so Clone is just a copy.
type cloneInt int

func (i cloneInt) Clone() cloneInt { return i }

// countingWaker counts how many times it was woken, for assertions.
type countingWaker struct {
	count int
}

func (w *countingWaker) Wake() { w.count++ }

// sliceSource is a [Source] over a fixed slice of values, reporting
// end-of-stream once exhausted. It never returns Pending: tests that need
// Pending drive a chanSource instead.
type sliceSource struct {
	values []cloneInt
	pos    int
	ended  bool
}

func newSliceSource(values ...cloneInt) *sliceSource {
	return &sliceSource{values: values}
}

func (s *sliceSource) Poll(Waker) Poll[cloneInt] {
	if s.pos >= len(s.values) {
		s.ended = true
		return ReadyItem(cloneInt(0), false)
	}
	v := s.values[s.pos]
	s.pos++
	return ReadyItem(v, true)
}

func (s *sliceSource) SizeHint() (uint64, *uint64) {
	n := len(s.values) - s.pos
	if n < 0 {
		n = 0
	}
	remaining := uint64(n)
	return remaining, &remaining
}

// chanSource is a [Source] backed by a channel: Poll returns Pending
// (retaining w) whenever the channel has nothing buffered right now.
type chanSource struct {
	ch     chan cloneInt
	closed chan struct{}
	waker  Waker
	done   bool
}

func newChanSource(buffer int) (*chanSource, func(cloneInt), func()) {
	s := &chanSource{ch: make(chan cloneInt, buffer), closed: make(chan struct{})}
	push := func(v cloneInt) {
		s.ch <- v
		if s.waker != nil {
			s.waker.Wake()
		}
	}
	end := func() {
		close(s.closed)
		if s.waker != nil {
			s.waker.Wake()
		}
	}
	return s, push, end
}

func (s *chanSource) Poll(w Waker) Poll[cloneInt] {
	if s.done {
		return ReadyItem(cloneInt(0), false)
	}
	select {
	case v := <-s.ch:
		return ReadyItem(v, true)
	default:
	}
	select {
	case <-s.closed:
		s.done = true
		return ReadyItem(cloneInt(0), false)
	default:
	}
	s.waker = w
	return PendingPoll[cloneInt]()
}

func (s *chanSource) SizeHint() (uint64, *uint64) {
	return uint64(len(s.ch)), nil
}
