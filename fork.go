package forkstream

import "github.com/joeycumines/logiface"

// fork is the coordination engine behind every [Handle] cloned from the
// same base stream: one ring queue, one clone registry, one base Source.
// It is never used concurrently by itself - see sharedFork for the lock
// that makes that safe - every method here assumes exclusive access.
type fork[T Cloneable[T]] struct {
	source   Source[T]
	queue    *ringQueue[T]
	registry *registry[T]
	logger   *logiface.Logger[logiface.Event]

	terminated   bool
	terminalItem Item[T]

	// pendingWakers accumulates wakers collected while the lock is held,
	// for firing by the caller once it has been released. Reused across
	// calls to avoid an allocation per poll.
	pendingWakers []Waker
}

func newFork[T Cloneable[T]](source Source[T], opts *forkOptions) *fork[T] {
	return &fork[T]{
		source:   source,
		queue:    newRingQueue[T](opts.queueCapacity),
		registry: newRegistry[T](opts.maxClones),
		logger:   opts.logger,
	}
}

// register allocates a new clone id, logging the fork's new active count
// at debug level.
func (f *fork[T]) register() (int, error) {
	id, err := f.registry.register()
	if err != nil {
		return 0, err
	}
	if b := f.logger.Debug(); b.Enabled() {
		b.Int(`clone_id`, id).Int(`active`, f.registry.count()).Log(`clone registered`)
	}
	return id, nil
}

// unregister frees id, logging at debug level. Queue entries that were
// only still needed for id's sake are left for eviction to catch up with
// (see handOut/anyOtherCloneStillNeedsIndex) rather than swept here.
func (f *fork[T]) unregister(id int) {
	ok := f.registry.unregister(id)
	if !ok {
		if b := f.logger.Warning(); b.Enabled() {
			b.Int(`clone_id`, id).Log(`unregister of inactive clone id`)
		}
		return
	}
	if b := f.logger.Debug(); b.Enabled() {
		b.Int(`clone_id`, id).Int(`active`, f.registry.count()).Log(`clone unregistered`)
	}
}

// pollClone drives one clone's step to completion, isolating a panic to
// just that clone's state. The returned wakers must be fired by the caller
// after releasing whatever lock guards this fork; firing a waker while
// holding that lock risks deadlock if the waker re-enters the fork.
func (f *fork[T]) pollClone(id int, w Waker) (p Poll[T], wakers []Waker, err error) {
	cs, err := f.registry.take(id)
	if err != nil {
		return Poll[T]{}, nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			cs.kind = stateInitial
			cs.waker = nil
			cs.index = -1
			_ = f.registry.restore(id, cs)
			p = Poll[T]{}
			wakers = nil
			err = &PollPanicError{CloneID: id, Recovered: r}
		}
	}()

	f.pendingWakers = f.pendingWakers[:0]
	p = f.step(id, cs, w)

	if restoreErr := f.registry.restore(id, cs); restoreErr != nil {
		return Poll[T]{}, nil, restoreErr
	}
	// Copied out rather than returned by reference: the caller fires these
	// after releasing the lock guarding f, by which point a concurrent
	// pollClone may already have truncated and overwritten f.pendingWakers.
	return p, append([]Waker(nil), f.pendingWakers...), nil
}

// step dispatches on cs.kind, following the per-state rules exactly:
// Initial and QueueEmpty both resolve straight against the base stream;
// the two Pending kinds resume by checking whether the queue now holds
// something, else repoll the base; UnseenReady looks for the next newer
// queued entry before falling back to the base; AllSeen repolls the base
// directly, its queue baseline assumed current as of its last poll.
func (f *fork[T]) step(id int, cs *cloneState[T], w Waker) Poll[T] {
	switch cs.kind {
	case stateInitial, stateQueueEmpty:
		return f.pollBaseFresh(id, cs, w)
	case stateQueueEmptyPending:
		return f.resumeQueueEmptyPending(id, cs, w)
	case stateUnseenReady:
		return f.resumeUnseenReady(id, cs, w)
	case stateAllSeen:
		return f.resumeAllSeen(id, cs, w)
	case stateAllSeenPending:
		return f.resumeAllSeenPending(id, cs, w)
	default:
		panic("forkstream: unreachable clone state kind")
	}
}

// pollBaseFresh implements the Initial and QueueEmpty step rules: poll the
// base directly. Ready values are delivered without ever having to search
// the queue - a clone reaching this state has, by construction, nothing
// buffered older than what the base is about to produce. A Pending result
// establishes QueueEmptyPending, or AllSeenPending{newest} if the queue
// already holds entries, so this clone only catches up on entries pushed
// after them.
func (f *fork[T]) pollBaseFresh(id int, cs *cloneState[T], w Waker) Poll[T] {
	if p, ok := f.pollTerminated(cs); ok {
		return p
	}

	p := f.source.Poll(w)
	if !p.Ready {
		if idx, ok := f.queue.newestIndex(); ok {
			cs.kind = stateAllSeenPending
			cs.index = idx
		} else {
			cs.kind = stateQueueEmptyPending
		}
		cs.waker = w
		return PendingPoll[T]()
	}
	return f.deliverFromBase(id, cs, p.Item, stateQueueEmpty)
}

// resumeQueueEmptyPending hands out the queue's oldest entry once one
// exists; otherwise it repolls the base exactly as pollBaseFresh does.
func (f *fork[T]) resumeQueueEmptyPending(id int, cs *cloneState[T], w Waker) Poll[T] {
	if idx, ok := f.queue.oldestIndex(); ok {
		return f.handOut(id, cs, idx)
	}
	return f.pollBaseFresh(id, cs, w)
}

// resumeUnseenReady hands out the next queue entry newer than cs.index,
// without proactively evicting it - cleanup of an UnseenReady->UnseenReady
// hop is deferred to eviction on overflow or clone unregistration, since
// another clone may still be working its own way up to this same entry.
// Once the queue has nothing newer, it falls back to the base.
func (f *fork[T]) resumeUnseenReady(id int, cs *cloneState[T], w Waker) Poll[T] {
	return f.resumeFromQueueOrBase(id, cs, w)
}

// resumeAllSeen repolls the base directly: an AllSeen clone has, as of its
// last poll, nothing left buffered for it.
func (f *fork[T]) resumeAllSeen(id int, cs *cloneState[T], w Waker) Poll[T] {
	return f.pollBaseContinuing(id, cs, w)
}

// resumeAllSeenPending resumes a clone suspended directly on the base
// stream with a last-seen baseline already established. Its waker fires
// either from the base stream itself or once a sibling has pushed something
// newer than that baseline onto the queue, so it checks the queue first -
// exactly like UnseenReady - before repolling the base.
func (f *fork[T]) resumeAllSeenPending(id int, cs *cloneState[T], w Waker) Poll[T] {
	return f.resumeFromQueueOrBase(id, cs, w)
}

// resumeFromQueueOrBase hands out the next queue entry newer than
// cs.index if one exists, without proactively evicting it; otherwise it
// falls back to the base. Shared by UnseenReady and AllSeenPending, whose
// resume rules are otherwise identical.
func (f *fork[T]) resumeFromQueueOrBase(id int, cs *cloneState[T], w Waker) Poll[T] {
	if j, ok := f.queue.findNextNewerIndex(cs.index); ok {
		p := cloneItem(f.queue, j)
		cs.kind = stateUnseenReady
		cs.index = j
		cs.waker = nil
		return p
	}
	return f.pollBaseContinuing(id, cs, w)
}

// pollBaseContinuing is the shared base-poll tail for UnseenReady, AllSeen
// and AllSeenPending once the queue has nothing newer to offer: a Ready
// result transitions to AllSeen, a Pending one transitions to
// AllSeenPending with cs.index left as-is (the last-seen baseline still
// holds - it is simply not newer than anything buffered right now).
func (f *fork[T]) pollBaseContinuing(id int, cs *cloneState[T], w Waker) Poll[T] {
	if p, ok := f.pollTerminated(cs); ok {
		return p
	}

	p := f.source.Poll(w)
	if !p.Ready {
		cs.kind = stateAllSeenPending
		cs.waker = w
		return PendingPoll[T]()
	}
	return f.deliverFromBase(id, cs, p.Item, stateAllSeen)
}

// pollTerminated short-circuits a clone whose handle must observe the
// fused terminal item again: the base stream is never polled twice past
// its own end.
func (f *fork[T]) pollTerminated(cs *cloneState[T]) (Poll[T], bool) {
	if !f.terminated {
		return Poll[T]{}, false
	}
	cs.kind = stateAllSeen
	cs.waker = nil
	return Poll[T]{Ready: true, Item: f.terminalItem}, true
}

// deliverFromBase completes a direct base-stream hit: it records
// termination, conditionally buffers the value for any sibling that still
// needs a future base item, fires that subset's wakers, and returns a
// cloned copy of the value to the caller (which consumed it straight from
// the base, bypassing the queue).
//
// The push is conditional - it never happens when no other clone is
// waiting on a base item - matching the same optimisation a ring buffer
// with no registered readers would apply: buffering only on demand keeps
// a lone clone's poll loop from paying for a queue it alone will never
// drain.
func (f *fork[T]) deliverFromBase(id int, cs *cloneState[T], item Item[T], nextKind cloneStateKind) Poll[T] {
	if !item.Ok {
		f.terminated = true
		f.terminalItem = item
		if b := f.logger.Debug(); b.Enabled() {
			b.Log(`base stream terminated`)
		}
	}

	if f.registry.hasOtherClonesWaiting(id) {
		willEvict := f.queue.Len() == f.queue.Cap()
		idx, stored := f.queue.push(item)
		if stored {
			cs.index = idx
			if willEvict {
				if b := f.logger.Trace(); b.Enabled() {
					b.Int(`capacity`, f.queue.Cap()).Log(`ring queue evicted oldest entry on overflow`)
				}
			}
		}
		f.pendingWakers = append(f.pendingWakers, f.registry.collectWakersNeedingBaseItem(id)...)
	}

	cs.kind = nextKind
	cs.waker = nil

	out := item
	if out.Ok {
		out.Value = out.Value.Clone()
	}
	return Poll[T]{Ready: true, Item: out}
}

// handOut delivers the queue entry at idx to the clone being stepped and,
// if no other active clone still needs it, proactively removes it rather
// than waiting for overflow-driven eviction to catch up.
func (f *fork[T]) handOut(id int, cs *cloneState[T], idx int) Poll[T] {
	p := cloneItem(f.queue, idx)
	if !f.anyOtherCloneStillNeedsIndex(id, idx) {
		f.queue.remove(idx)
	}
	cs.kind = stateUnseenReady
	cs.index = idx
	cs.waker = nil
	return p
}

// anyOtherCloneStillNeedsIndex reports whether some active clone, other
// than exclude, still needs the queue entry at idx (see
// cloneStillNeedsIndex).
func (f *fork[T]) anyOtherCloneStillNeedsIndex(exclude, idx int) bool {
	found := false
	f.registry.forEach(func(id int, cs *cloneState[T]) {
		if found || id == exclude {
			return
		}
		if cloneStillNeedsIndex(cs, f.queue, idx) {
			found = true
		}
	})
	return found
}

// cachedCountFor returns the number of live queue entries cs has not yet
// been delivered.
func (f *fork[T]) cachedCountFor(cs *cloneState[T]) int {
	n := 0
	for _, e := range f.queue.iterate() {
		if cloneStillNeedsIndex(cs, f.queue, e.Index) {
			n++
		}
	}
	return n
}
