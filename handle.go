package forkstream

import "context"

// Handle is one cloneable view onto a forked base stream. Each Handle
// returned by [ForkStream] or [Handle.Clone] observes its own copy of every
// value produced by the base stream from its creation point onward; values
// produced before a Handle exists are never replayed to it.
//
// A Handle is not safe for concurrent use by multiple goroutines - the same
// restriction [Source] places on a single stream - but independent Handles
// over the same fork may be driven concurrently from different goroutines.
type Handle[T Cloneable[T]] struct {
	shared *sharedFork[T]
	id     int
}

// ForkStream wraps source so it can be cloned any number of times (up to
// [DefaultMaxClones], or the limit set by [WithMaxClones]), returning the
// first Handle. Every later Handle is obtained via [Handle.Clone].
func ForkStream[T Cloneable[T]](source Source[T], opts ...ForkOption) (*Handle[T], error) {
	cfg, err := resolveForkOptions(opts)
	if err != nil {
		return nil, err
	}
	shared := newSharedFork[T](source, cfg)
	id, err := shared.register()
	if err != nil {
		return nil, err
	}
	return &Handle[T]{shared: shared, id: id}, nil
}

// ForkWithLimits is [ForkStream] with explicit queue capacity and clone
// limits, for callers that would otherwise write
// ForkStream(source, WithQueueCapacity(c), WithMaxClones(m)).
func ForkWithLimits[T Cloneable[T]](source Source[T], queueCapacity, maxClones int, opts ...ForkOption) (*Handle[T], error) {
	all := make([]ForkOption, 0, len(opts)+2)
	all = append(all, WithQueueCapacity(queueCapacity), WithMaxClones(maxClones))
	all = append(all, opts...)
	return ForkStream[T](source, all...)
}

// Clone registers a new, independent Handle over the same fork. The new
// Handle's first poll observes only values produced from this call onward.
func (h *Handle[T]) Clone() (*Handle[T], error) {
	id, err := h.shared.register()
	if err != nil {
		return nil, err
	}
	return &Handle[T]{shared: h.shared, id: id}, nil
}

// Close unregisters this Handle. It is safe to call more than once; later
// calls are no-ops. A closed Handle's id is eligible for reuse by a later
// [Handle.Clone] on the same fork.
func (h *Handle[T]) Close() {
	h.shared.unregister(h.id)
}

// PollNext is the low-level, non-blocking poll surface: it returns
// immediately, either with the next item (or the terminal marker) or
// pending, in which case w is retained and will be woken once this Handle
// may have something new to report.
func (h *Handle[T]) PollNext(w Waker) (Poll[T], error) {
	return h.shared.pollClone(h.id, w)
}

// SizeHint reports a lower bound, and, if known, an upper bound on the
// number of items this Handle has yet to yield: the base stream's own
// SizeHint, plus whatever this Handle's backlog already holds buffered.
func (h *Handle[T]) SizeHint() (lower uint64, upper *uint64, err error) {
	return h.shared.sizeHint(h.id)
}

// QueuedItems reports how many buffered items this Handle has not yet been
// delivered.
func (h *Handle[T]) QueuedItems() (int, error) {
	return h.shared.queuedItems(h.id)
}

// IsTerminated reports whether the base stream has ended and this Handle
// has drained every item produced before that happened.
func (h *Handle[T]) IsTerminated() (bool, error) {
	return h.shared.isTerminated(h.id)
}

// chanWaker bridges the poll/waker protocol to a channel receive, for
// [Handle.Next]. Wake is a non-blocking, idempotent send: at most one
// pending notification is ever buffered, which is all a poll loop needs to
// know it should try again.
type chanWaker struct {
	ch chan struct{}
}

func newChanWaker() *chanWaker {
	return &chanWaker{ch: make(chan struct{}, 1)}
}

// Wake implements [Waker].
func (w *chanWaker) Wake() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Next is the convenience, blocking surface built on top of PollNext: it
// polls, and if pending, waits for either a wakeup or ctx's cancellation.
// ok is false for the terminal item and for every call after it; a non-nil
// error means ctx was cancelled, the Handle itself is no longer valid, or
// the poll step panicked ([PollPanicError]).
func (h *Handle[T]) Next(ctx context.Context) (value T, ok bool, err error) {
	w := newChanWaker()
	for {
		p, err := h.PollNext(w)
		if err != nil {
			var zero T
			return zero, false, err
		}
		if p.Ready {
			return p.Item.Value, p.Item.Ok, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		case <-w.ch:
		}
	}
}
